package main

import (
	"log"
	"os"

	"github.com/andreyxaxa/order-saga/config"
	"github.com/andreyxaxa/order-saga/internal/app"
	"github.com/joho/godotenv"
)

func main() {
	// Config
	if _, err := os.Stat(".env"); err == nil {
		err = godotenv.Load()
		if err != nil {
			log.Fatalf("config error: %s", err)
		}
	}

	cfg, err := config.New("order-service")
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}

	// Run
	app.RunOrder(cfg)
}

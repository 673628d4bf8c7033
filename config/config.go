package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		App         App
		HTTP        HTTP
		Log         Log
		PG          PG
		Kafka       Kafka
		Consumer    Consumer
		OutboxRelay OutboxRelay
		Fulfillment Fulfillment
		Inventory   Inventory
		S3          S3
		Telemetry   Telemetry
		Swagger     Swagger
	}

	App struct {
		Name    string `env:"APP_NAME"`
		Version string `env:"APP_VERSION" envDefault:"1.0.0"`
	}

	HTTP struct {
		Port           string        `env:"HTTP_PORT,required"`
		UsePreforkMode bool          `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
		ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
		WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"5s"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX" envDefault:"10"`
		URL     string `env:"PG_URL,required"`
	}

	Kafka struct {
		Brokers      []string      `env:"KAFKA_BROKERS,required"`
		GroupID      string        `env:"KAFKA_GROUP_ID"`
		CreateTopics bool          `env:"KAFKA_CREATE_TOPICS" envDefault:"true"`
		Partitions   int           `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
		Replication  int           `env:"KAFKA_TOPIC_REPLICATION" envDefault:"1"`
		BatchTimeout time.Duration `env:"KAFKA_PRODUCER_BATCH_TIMEOUT" envDefault:"10ms"`
		MaxWait      time.Duration `env:"KAFKA_CONSUMER_MAX_WAIT" envDefault:"1s"`
	}

	Consumer struct {
		MaxAttempts       int           `env:"CONSUMER_MAX_ATTEMPTS" envDefault:"3"`
		InitialBackoff    time.Duration `env:"CONSUMER_INITIAL_BACKOFF" envDefault:"1s"`
		BackoffMultiplier float64       `env:"CONSUMER_BACKOFF_MULTIPLIER" envDefault:"2"`
		CommitTimeout     time.Duration `env:"CONSUMER_COMMIT_TIMEOUT" envDefault:"2s"`
		ShutdownTimeout   time.Duration `env:"CONSUMER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	OutboxRelay struct {
		PollInterval        time.Duration `env:"OUTBOX_RELAY_POLL_INTERVAL" envDefault:"2s"`
		CleanupInterval     time.Duration `env:"OUTBOX_RELAY_CLEANUP_INTERVAL" envDefault:"1h"`
		Retention           time.Duration `env:"OUTBOX_RELAY_RETENTION" envDefault:"24h"`
		ProcessBatchTimeout time.Duration `env:"OUTBOX_RELAY_PROCESS_BATCH_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout     time.Duration `env:"OUTBOX_RELAY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize           int           `env:"OUTBOX_RELAY_BATCH_SIZE" envDefault:"100"`
	}

	Fulfillment struct {
		PollInterval    time.Duration `env:"FULFILLMENT_POLL_INTERVAL" envDefault:"10s"`
		ShippingDelay   time.Duration `env:"FULFILLMENT_SHIPPING_DELAY" envDefault:"5s"`
		TickTimeout     time.Duration `env:"FULFILLMENT_TICK_TIMEOUT" envDefault:"8s"`
		ShutdownTimeout time.Duration `env:"FULFILLMENT_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize       int           `env:"FULFILLMENT_BATCH_SIZE" envDefault:"100"`
	}

	Inventory struct {
		ReserveMaxAttempts int  `env:"INVENTORY_RESERVE_MAX_ATTEMPTS" envDefault:"3"`
		LowStockThreshold  int  `env:"INVENTORY_LOW_STOCK_THRESHOLD" envDefault:"10"`
		Seed               bool `env:"INVENTORY_SEED" envDefault:"true"`
	}

	// S3 archives published outbox records before cleanup deletes them.
	S3 struct {
		Enabled        bool          `env:"S3_ENABLED" envDefault:"false"`
		Endpoint       string        `env:"S3_ENDPOINT"`
		AccessKey      string        `env:"S3_ACCESS_KEY"`
		SecretKey      string        `env:"S3_SECRET_KEY"`
		Region         string        `env:"S3_REGION" envDefault:"us-east-1"`
		Bucket         string        `env:"S3_BUCKET" envDefault:"outbox-archive"`
		Prefix         string        `env:"S3_PREFIX"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Telemetry struct {
		OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

// New parses the environment. service fills the defaults that differ
// between binaries: the application name and the consumer group.
func New(service string) (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if cfg.App.Name == "" {
		cfg.App.Name = service
	}

	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = service
	}

	if cfg.S3.Enabled && (cfg.S3.Endpoint == "" || cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "") {
		return nil, fmt.Errorf("config error: S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENABLED")
	}

	return cfg, nil
}

package inventory

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/shopspring/decimal"
)

const (
	_seedMinStock = 10
	_seedMaxStock = 100
)

var _sampleProducts = []struct {
	name        string
	description string
	price       string
}{
	{"Wireless Headphones", "Premium noise-cancelling headphones", "149.99"},
	{"USB-C Cable", "Durable 6ft USB-C charging cable", "12.99"},
	{"Phone Case", "Protective phone case with shock absorption", "19.99"},
	{"Screen Protector", "Tempered glass screen protector", "9.99"},
	{"Power Bank", "30000mAh portable power bank", "49.99"},
	{"Laptop Stand", "Adjustable aluminum laptop stand", "39.99"},
	{"Mechanical Keyboard", "RGB mechanical gaming keyboard", "99.99"},
	{"Mouse Pad", "Large extended mouse pad with non-slip base", "24.99"},
	{"USB Hub", "4-port USB 3.0 hub", "29.99"},
	{"Monitor Stand", "Adjustable dual monitor stand", "89.99"},
	{"Desk Lamp", "LED desk lamp with adjustable brightness", "34.99"},
	{"Cable Organizer", "Desktop cable management system", "14.99"},
	{"Webcam", "1080p HD webcam with microphone", "59.99"},
	{"Microphone", "USB condenser microphone for streaming", "79.99"},
	{"HDMI Cable", "4K HDMI 2.1 cable", "15.99"},
	{"SD Card 128GB", "128GB microSD card class 10", "34.99"},
	{"External SSD 1TB", "1TB portable SSD with USB 3.1", "129.99"},
	{"Cooling Pad", "Laptop cooling pad with 5 fans", "44.99"},
	{"Keyboard Cover", "Silicone keyboard cover for laptops", "9.99"},
	{"Phone Holder", "Universal phone holder for desk", "14.99"},
}

// Seed fills an empty catalog with the sample products. It returns the
// number of products created; a non-empty catalog is left alone.
func (uc *UseCase) Seed(ctx context.Context) (int, error) {
	count, err := uc.products.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("InventoryUseCase - Seed - uc.products.Count: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	now := uc.now().UTC()

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, sample := range _sampleProducts {
			product := &entity.Product{
				ProductID:   entity.NewProductID(),
				Name:        sample.name,
				Description: sample.description,
				Price:       decimal.RequireFromString(sample.price),
				Stock:       _seedMinStock + rand.IntN(_seedMaxStock-_seedMinStock+1), //nolint:gosec // sample data
				CreatedAt:   now,
				UpdatedAt:   now,
			}

			if err := uc.products.Create(ctx, product); err != nil {
				return fmt.Errorf("InventoryUseCase - Seed - uc.products.Create: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	uc.logger.Info("InventoryUseCase - Seed - seeded %d products", len(_sampleProducts))

	return len(_sampleProducts), nil
}

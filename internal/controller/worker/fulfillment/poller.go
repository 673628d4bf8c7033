package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyxaxa/order-saga/internal/usecase"
	"github.com/andreyxaxa/order-saga/pkg/logger"
)

// Poller ships PAID orders once the shipping delay has passed since their
// last update.
type Poller struct {
	orders usecase.OrderUseCase
	logger logger.Interface

	interval    time.Duration
	delay       time.Duration
	batchSize   int
	tickTimeout time.Duration
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	orders usecase.OrderUseCase,
	l logger.Interface,
	interval time.Duration,
	delay time.Duration,
	batchSize int,
	tickTimeout time.Duration,
) *Poller {
	return &Poller{
		orders:      orders,
		logger:      l,
		interval:    interval,
		delay:       delay,
		batchSize:   batchSize,
		tickTimeout: tickTimeout,
		now:         time.Now,
	}
}

func (p *Poller) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("FulfillmentPoller - Start - poller already started")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()

	return nil
}

func (p *Poller) tick() {
	ctx, cancel := context.WithTimeout(p.ctx, p.tickTimeout)
	defer cancel()

	fulfilled, err := p.orders.FulfillDueOrders(ctx, p.now().UTC().Add(-p.delay), p.batchSize)
	if err != nil {
		p.logger.Error(err, "FulfillmentPoller - tick - p.orders.FulfillDueOrders")
	}
	if fulfilled > 0 {
		p.logger.Info("FulfillmentPoller - tick - fulfilled %d orders", fulfilled)
	}
}

func (p *Poller) Shutdown(ctx context.Context) error {
	if !p.started.Load() {
		return nil
	}

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("FulfillmentPoller - Shutdown: %w", ctx.Err())
	}
}

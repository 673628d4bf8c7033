package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyxaxa/order-saga/internal/usecase"
	"github.com/andreyxaxa/order-saga/pkg/logger"
)

// OutboxRelay polls the outbox and publishes what it finds. A second
// worker prunes published records.
type OutboxRelay struct {
	ob     usecase.OutboxUseCase
	logger logger.Interface

	pollInterval        time.Duration
	cleanupInterval     time.Duration
	processBatchTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	ob usecase.OutboxUseCase,
	l logger.Interface,
	pollInterval time.Duration,
	cleanupInterval time.Duration,
	processBatchTimeout time.Duration,
) *OutboxRelay {
	return &OutboxRelay{
		ob:                  ob,
		logger:              l,
		pollInterval:        pollInterval,
		cleanupInterval:     cleanupInterval,
		processBatchTimeout: processBatchTimeout,
	}
}

func (r *OutboxRelay) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return fmt.Errorf("OutboxRelay - Start - worker already started")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	// 1. publishing
	r.worker(r.pollInterval, func() {
		batchCtx, batchCancel := context.WithTimeout(r.ctx, r.processBatchTimeout)
		r.processEventsBatch(batchCtx)
		batchCancel()
	})

	// 2. pruning
	r.worker(r.cleanupInterval, func() {
		deleted, err := r.ob.Cleanup(r.ctx)
		if err != nil {
			r.logger.Error(err, "OutboxRelay - Start - worker - r.ob.Cleanup")

			return
		}
		if deleted > 0 {
			r.logger.Info("OutboxRelay - cleanup - removed %d published events", deleted)
		}
	})

	return nil
}

// processEventsBatch drains the outbox: a non-empty batch is followed by another
// one right away.
func (r *OutboxRelay) processEventsBatch(ctx context.Context) {
	for {
		published, err := r.ob.PublishPending(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Error(err, "OutboxRelay - processEventsBatch - r.ob.PublishPending")
			}

			return
		}
		if published == 0 {
			return
		}

		r.logger.Debug("OutboxRelay - processEventsBatch - published %d events", published)

		if ctx.Err() != nil {
			return
		}
	}
}

func (r *OutboxRelay) worker(interval time.Duration, task func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()
}

func (r *OutboxRelay) Shutdown(ctx context.Context) error {
	if !r.started.Load() {
		return nil
	}

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("OutboxRelay - Shutdown: %w", ctx.Err())
	}
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyxaxa/order-saga/internal/infrastructure"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const _defaultRedeliveryPause = time.Second

// Routes maps a topic to the handler of its events.
type Routes map[string]Handler

// KafkaController runs one reader loop per subscribed topic. Messages of a
// reader are handled one at a time and committed after handling.
type KafkaController struct {
	shell   *Shell
	routes  Routes
	readers []infrastructure.EventReader
	logger  logger.Interface

	commitTimeout   time.Duration
	redeliveryPause time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	shell *Shell,
	routes Routes,
	readers []infrastructure.EventReader,
	l logger.Interface,
	commitTimeout time.Duration,
) *KafkaController {
	return &KafkaController{
		shell:           shell,
		routes:          routes,
		readers:         readers,
		logger:          l,
		commitTimeout:   commitTimeout,
		redeliveryPause: _defaultRedeliveryPause,
	}
}

func (c *KafkaController) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("KafkaController - Start - controller already started")
	}

	for _, reader := range c.readers {
		if _, ok := c.routes[reader.Topic()]; !ok {
			return fmt.Errorf("KafkaController - Start - no handler for topic %s", reader.Topic())
		}
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	for _, reader := range c.readers {
		c.wg.Add(1)
		go c.consume(reader, c.routes[reader.Topic()])
	}

	return nil
}

func (c *KafkaController) consume(reader infrastructure.EventReader, h Handler) {
	defer c.wg.Done()

	for {
		msg, err := reader.ReadEvent(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Error(err, "KafkaController - consume - reader.ReadEvent")

			if !c.pause() {
				return
			}

			continue
		}

		if !c.handle(msg, h) {
			return
		}

		commitCtx, commitCancel := context.WithTimeout(c.ctx, c.commitTimeout)
		err = reader.CommitEvent(commitCtx, msg)
		commitCancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error(err, "KafkaController - consume - reader.CommitEvent")
		}
	}
}

// handle runs msg through the shell until it is done with. It returns false
// when the controller is stopping.
func (c *KafkaController) handle(msg kafka.Message, h Handler) bool {
	for {
		outcome, err := c.safeHandle(msg, h)
		if err == nil {
			c.logger.Debug("KafkaController - handle - topic %s partition %d offset %d: %s",
				msg.Topic, msg.Partition, msg.Offset, outcome)

			return true
		}

		if c.ctx.Err() != nil {
			return false
		}

		c.logger.Error(err, "KafkaController - handle - c.shell.Handle")

		if !c.pause() {
			return false
		}
	}
}

func (c *KafkaController) safeHandle(msg kafka.Message, h Handler) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("KafkaController - safeHandle - panic: %v", r)
		}
	}()

	return c.shell.Handle(c.ctx, msg, h)
}

func (c *KafkaController) pause() bool {
	select {
	case <-c.ctx.Done():
		return false
	case <-time.After(c.redeliveryPause):
		return true
	}
}

func (c *KafkaController) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		for _, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.logger.Error(err, "KafkaController - Shutdown - reader.Close")
			}
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("KafkaController - Shutdown: %w", ctx.Err())
	}
}

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andreyxaxa/order-saga/config"
	kafkactrl "github.com/andreyxaxa/order-saga/internal/controller/kafka"
	"github.com/andreyxaxa/order-saga/internal/controller/worker/outbox"
	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/internal/infrastructure"
	infrakafka "github.com/andreyxaxa/order-saga/internal/infrastructure/kafka"
	"github.com/andreyxaxa/order-saga/internal/repo"
	"github.com/andreyxaxa/order-saga/internal/repo/persistent"
	outboxuc "github.com/andreyxaxa/order-saga/internal/usecase/outbox"
	"github.com/andreyxaxa/order-saga/pkg/httpserver"
	"github.com/andreyxaxa/order-saga/pkg/kafka/admin"
	"github.com/andreyxaxa/order-saga/pkg/kafka/consumer"
	"github.com/andreyxaxa/order-saga/pkg/kafka/producer"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/andreyxaxa/order-saga/pkg/postgres"
	"github.com/andreyxaxa/order-saga/pkg/s3client"
	"github.com/andreyxaxa/order-saga/pkg/telemetry"
)

// platform holds what both services share: storage, bus, telemetry and
// the event plumbing around a set of consumer routes.
type platform struct {
	cfg *config.Config
	l   logger.Interface

	telemetry *telemetry.Provider
	metrics   *telemetry.Metrics
	pg        *postgres.Postgres

	eventProducer      *infrakafka.EventProducer
	deadLetterProducer *infrakafka.DeadLetterProducer
	outboxRepo         *persistent.OutboxRepo
	emitter            *outboxuc.Emitter

	kafkaController *kafkactrl.KafkaController
	outboxRelay     *outbox.OutboxRelay
	httpServer      *httpserver.Server
}

func newPlatform(ctx context.Context, cfg *config.Config) *platform {
	// Logger
	l := logger.New(cfg.Log.Level).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	p := &platform{cfg: cfg, l: l}

	// Telemetry
	tp, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.App.Name, cfg.App.Version)
	if err != nil {
		l.Fatal(fmt.Errorf("app - newPlatform - telemetry.Setup: %w", err))
	}
	p.telemetry = tp
	p.metrics = telemetry.NewMetrics()

	// Repository

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - newPlatform - postgres.New: %w", err))
	}
	p.pg = pg

	err = persistent.ApplySchema(ctx, pg)
	if err != nil {
		l.Fatal(fmt.Errorf("app - newPlatform - persistent.ApplySchema: %w", err))
	}

	p.outboxRepo = persistent.NewOutboxRepo(pg)
	p.emitter = outboxuc.NewEmitter(p.outboxRepo)

	// Kafka topics
	if cfg.Kafka.CreateTopics {
		err = admin.CreateTopics(ctx, cfg.Kafka.Brokers[0], cfg.Kafka.Partitions, cfg.Kafka.Replication, event.Topics()...)
		if err != nil {
			l.Fatal(fmt.Errorf("app - newPlatform - admin.CreateTopics: %w", err))
		}
	}

	// Kafka Producers
	eventProducer, err := producer.New(ctx, cfg.Kafka.Brokers, producer.BatchTimeout(cfg.Kafka.BatchTimeout))
	if err != nil {
		l.Fatal(fmt.Errorf("app - newPlatform - producer.New: %w", err))
	}
	p.eventProducer = infrakafka.NewEventProducer(eventProducer)

	deadLetterProducer, err := producer.New(ctx, cfg.Kafka.Brokers, producer.BatchTimeout(cfg.Kafka.BatchTimeout))
	if err != nil {
		l.Fatal(fmt.Errorf("app - newPlatform - producer.New dead letter: %w", err))
	}
	p.deadLetterProducer = infrakafka.NewDeadLetterProducer(deadLetterProducer)

	// HTTP Server
	p.httpServer = httpserver.New(
		l,
		httpserver.Port(cfg.HTTP.Port),
		httpserver.Prefork(cfg.HTTP.UsePreforkMode),
		httpserver.ReadTimeout(cfg.HTTP.ReadTimeout),
		httpserver.WriteTimeout(cfg.HTTP.WriteTimeout),
	)

	return p
}

// withOutboxRelay builds the relay over the shared outbox table, archiving
// to S3 before cleanup when enabled.
func (p *platform) withOutboxRelay(ctx context.Context) {
	var archive repo.OutboxArchive

	if p.cfg.S3.Enabled {
		s3Ctx, s3Cancel := context.WithTimeout(ctx, p.cfg.S3.CfgLoadTimeout)
		defer s3Cancel()

		s3c, err := s3client.New(s3Ctx, p.cfg.S3.Endpoint, p.cfg.S3.AccessKey, p.cfg.S3.SecretKey, s3client.Region(p.cfg.S3.Region))
		if err != nil {
			p.l.Fatal(fmt.Errorf("app - withOutboxRelay - s3client.New: %w", err))
		}

		err = s3c.EnsureBucket(s3Ctx, p.cfg.S3.Bucket)
		if err != nil {
			p.l.Fatal(fmt.Errorf("app - withOutboxRelay - s3c.EnsureBucket: %w", err))
		}

		archive = persistent.NewOutboxArchiveRepo(s3c, p.cfg.S3.Bucket, p.cfg.S3.Prefix)
	}

	outboxUseCase := outboxuc.New(
		p.outboxRepo,
		archive,
		p.eventProducer,
		p.pg,
		p.metrics,
		p.l,
		p.cfg.OutboxRelay.BatchSize,
		p.cfg.OutboxRelay.Retention,
	)

	p.outboxRelay = outbox.New(
		outboxUseCase,
		p.l,
		p.cfg.OutboxRelay.PollInterval,
		p.cfg.OutboxRelay.CleanupInterval,
		p.cfg.OutboxRelay.ProcessBatchTimeout,
	)
}

// withConsumers subscribes one reader per routed topic behind the
// idempotent consumer shell.
func (p *platform) withConsumers(ctx context.Context, routes kafkactrl.Routes) {
	shell := kafkactrl.NewShell(
		p.pg,
		persistent.NewProcessedEventRepo(p.pg, p.cfg.Kafka.GroupID),
		p.deadLetterProducer,
		p.metrics,
		p.l,
		kafkactrl.MaxAttempts(p.cfg.Consumer.MaxAttempts),
		kafkactrl.Backoff(p.cfg.Consumer.InitialBackoff, p.cfg.Consumer.BackoffMultiplier),
	)

	topics := routes.Topics()
	readers := make([]infrastructure.EventReader, 0, len(topics))

	for _, topic := range topics {
		c, err := consumer.New(ctx, p.cfg.Kafka.Brokers, p.cfg.Kafka.GroupID, topic, consumer.MaxWait(p.cfg.Kafka.MaxWait))
		if err != nil {
			p.l.Fatal(fmt.Errorf("app - withConsumers - consumer.New %s: %w", topic, err))
		}

		readers = append(readers, infrakafka.NewEventConsumer(c, topic))
	}

	p.kafkaController = kafkactrl.New(shell, routes, readers, p.l, p.cfg.Consumer.CommitTimeout)
}

func (p *platform) start(ctx context.Context) {
	err := p.outboxRelay.Start(ctx)
	if err != nil {
		p.l.Fatal(fmt.Errorf("app - start - outboxRelay.Start: %w", err))
	}

	err = p.kafkaController.Start(ctx)
	if err != nil {
		p.l.Fatal(fmt.Errorf("app - start - kafkaController.Start: %w", err))
	}

	p.httpServer.Start()
}

// wait blocks until a termination signal or an HTTP server failure.
func (p *platform) wait() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		p.l.Info("app - Run - signal: %s", s.String())
	case err := <-p.httpServer.Notify():
		p.l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}
}

// stopIntake stops the HTTP server and the consumers, so no new work
// reaches the outbox.
func (p *platform) stopIntake(ctx context.Context) {
	err := p.httpServer.Shutdown()
	if err != nil {
		p.l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	kcShutdownCtx, kcShutdownCancel := context.WithTimeout(ctx, p.cfg.Consumer.ShutdownTimeout)
	defer kcShutdownCancel()
	err = p.kafkaController.Shutdown(kcShutdownCtx)
	if err != nil {
		p.l.Error(fmt.Errorf("app - Run - kafkaController.Shutdown: %w", err))
	}
}

// close stops the relay and releases the bus, storage and telemetry.
func (p *platform) close(ctx context.Context) {
	orlShutdownCtx, orlShutdownCancel := context.WithTimeout(ctx, p.cfg.OutboxRelay.ShutdownTimeout)
	defer orlShutdownCancel()
	err := p.outboxRelay.Shutdown(orlShutdownCtx)
	if err != nil {
		p.l.Error(fmt.Errorf("app - Run - outboxRelay.Shutdown: %w", err))
	}

	err = p.eventProducer.Close()
	if err != nil {
		p.l.Error(fmt.Errorf("app - Run - eventProducer.Close: %w", err))
	}

	err = p.deadLetterProducer.Close()
	if err != nil {
		p.l.Error(fmt.Errorf("app - Run - deadLetterProducer.Close: %w", err))
	}

	p.pg.Close()

	err = p.telemetry.Shutdown(ctx)
	if err != nil {
		p.l.Error(fmt.Errorf("app - Run - telemetry.Shutdown: %w", err))
	}
}

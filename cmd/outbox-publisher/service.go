package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Outbox     config.OutboxConfig
	Logger     *logger.Logger
	DB         dbClient
	Broker     broker
	Repository outboxRepository
	Resolver   eventResolver
	DLQ        dlqRepository
	Metrics    *metrics.OutboxMetrics
}

// Service drains outbox_events to Pub/Sub. Each batch runs in one
// transaction holding row locks, so publishers can scale out.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	broker      broker
	repo        outboxRepository
	resolver    eventResolver
	dlq         dlqRepository
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	pace        *pacer
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("pubsub broker is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Resolver == nil:
		return nil, errors.New("event resolver is required")
	case params.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	}

	cfg := params.Outbox
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = defaultPollMs
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:        params.Logger,
		db:          params.DB,
		broker:      params.Broker,
		repo:        params.Repository,
		resolver:    params.Resolver,
		dlq:         params.DLQ,
		metrics:     params.Metrics,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		pace:        newPacer(time.Duration(cfg.PollIntervalMS) * time.Millisecond),
		now:         time.Now,
	}, nil
}

func (s *Service) ready(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.broker.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(ctx, check.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}
	return nil
}

// Run polls until ctx is canceled. A full batch is followed immediately by
// another; a short or empty one waits a poll interval; a failed one backs off.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		handled, err := s.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = s.pace.failed()
		case handled >= s.batchSize:
			s.pace.reset()
			continue
		default:
			wait = s.pace.idle()
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// drain handles one batch and reports how many rows it touched.
func (s *Service) drain(ctx context.Context) (int, error) {
	handled := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		for _, event := range events {
			if err := s.handle(ctx, tx, event); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention       = 30 * 24 * time.Hour
	defaultNotificationRetention = 90 * 24 * time.Hour
	defaultTerminalAttempts      = 10
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

type notificationPruner interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// retentionJob deletes whatever prune matches older than now-retention, in
// one transaction.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	retention time.Duration
	prune     func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	now       func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, retention, fallback time.Duration) (*retentionJob, error) {
	switch {
	case logg == nil:
		return nil, errors.New("logger required")
	case db == nil:
		return nil, errors.New("db runner required")
	}
	if retention <= 0 {
		retention = fallback
	}
	return &retentionJob{name: name, logg: logg, db: db, retention: retention, now: time.Now}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = j.prune(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), j.name+" complete")
	return nil
}

type OutboxRetentionParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Repository       outboxPruner
	Retention        time.Duration
	TerminalAttempts int
}

// NewOutboxRetentionJob prunes published and dead-lettered outbox rows.
func NewOutboxRetentionJob(params OutboxRetentionParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	job, err := newRetentionJob("outbox-retention", params.Logger, params.DB, params.Retention, defaultOutboxRetention)
	if err != nil {
		return nil, err
	}
	terminal := params.TerminalAttempts
	if terminal <= 0 {
		terminal = defaultTerminalAttempts
	}
	job.prune = func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
		return params.Repository.DeletePublishedBefore(ctx, tx, cutoff, terminal)
	}
	return job, nil
}

type NotificationCleanupParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationPruner
	Retention  time.Duration
}

// NewNotificationCleanupJob drops notification rows past retention. The
// retention must outlive Pub/Sub redelivery, since the row is the durable
// dedupe record for an event.
func NewNotificationCleanupJob(params NotificationCleanupParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	job, err := newRetentionJob("notification-cleanup", params.Logger, params.DB, params.Retention, defaultNotificationRetention)
	if err != nil {
		return nil, err
	}
	job.prune = params.Repository.DeleteOlderThan
	return job, nil
}

package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var (
	errTxRequired = errors.New("transaction required")
	// ErrEventGone means the row was deleted between fetch and update.
	ErrEventGone = errors.New("outbox event no longer exists")
)

// Repository owns outbox_events. Every write except retention runs inside
// the caller's transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Create(&event).Error
}

// pending selects rows not yet published that still have attempts left.
func pending(maxAttempts int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("published_at IS NULL AND attempt_count < ?", maxAttempts)
	}
}

// FetchUnpublishedForPublish locks up to limit pending rows, oldest first.
// Rows held by another publisher's transaction are skipped, not waited on.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	var rows []models.OutboxEvent
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Scopes(pending(maxAttempts)).
		Order("created_at, id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.update(tx, id, map[string]any{"published_at": time.Now().UTC()})
}

// MarkFailedTx records a retryable failure and spends one attempt.
func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.update(tx, id, map[string]any{
		"last_error":    lastError(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// MarkTerminalTx parks a row by exhausting its attempts, so pending() never
// matches it again. The row stays until retention removes it.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	return r.update(tx, id, map[string]any{
		"last_error":    lastError(cause),
		"attempt_count": terminalAttempts,
	})
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, values map[string]any) error {
	if tx == nil {
		return errTxRequired
	}
	res := tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrEventGone, id)
	}
	return nil
}

// DeletePublishedBefore removes rows published before cutoff and parked rows
// created before cutoff. Parked rows already have a copy in outbox_dlq.
func (r *Repository) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).
		Where("published_at < ?", cutoff).
		Or("published_at IS NULL AND attempt_count >= ? AND created_at < ?", terminalAttempts, cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func lastError(cause error) string {
	if cause == nil {
		return ""
	}
	msg := cause.Error()
	if len(msg) > models.DLQMessageLimit {
		msg = msg[:models.DLQMessageLimit]
	}
	return msg
}

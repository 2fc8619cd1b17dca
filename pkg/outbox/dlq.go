package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// DeadLetterStore persists rows the publisher gave up on.
type DeadLetterStore struct {
	db *gorm.DB
}

func NewDeadLetterStore(db *gorm.DB) *DeadLetterStore {
	return &DeadLetterStore{db: db}
}

// InsertTx writes entry in the publisher's transaction, alongside marking the
// source row terminal.
func (s *DeadLetterStore) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.EventID == uuid.Nil {
		return errors.New("dlq entry needs an event id")
	}
	if !entry.ErrorReason.IsValid() {
		return fmt.Errorf("dlq reason %q", entry.ErrorReason)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	entry.Clip()
	return tx.Create(&entry).Error
}

// FindByEventID returns the newest entry for eventID, or nil when the event
// was never dead-lettered.
func (s *DeadLetterStore) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var rows []models.OutboxDLQ
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("failed_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

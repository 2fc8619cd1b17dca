package main

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// attempt is what happened to one row on this pass.
type attempt struct {
	topic     string
	eventID   string
	published bool
	// attempts counts broker calls including this one.
	attempts int
	err      error
}

// handle publishes one row and records the result inside tx. Only errors
// writing the result abort the batch.
func (s *Service) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	a := s.publish(ctx, event)
	logCtx := s.logg.WithFields(ctx, fieldsFor(event, a))
	eventType := string(event.EventType)

	if a.err == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(eventType)
		s.logg.Info(logCtx, "outbox event published")
		return nil
	}

	logCtx = s.logg.WithField(logCtx, "error", a.err.Error())
	reason, terminal := classify(a.err, a.attempts, s.maxAttempts)
	if !terminal {
		if err := s.repo.MarkFailedTx(tx, event.ID, a.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
		s.metrics.IncFailed(eventType, false)
		s.logg.Warn(logCtx, "outbox publish failed, will retry")
		return nil
	}

	s.metrics.IncFailed(eventType, true)
	s.logg.Warn(s.logg.WithField(logCtx, "dlq_reason", string(reason)), "outbox event dead-lettered")
	return s.deadLetter(tx, event, reason, a)
}

// publish resolves the row to a topic and hands it to the broker.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent) attempt {
	a := attempt{attempts: event.AttemptCount}
	resolved, err := s.resolver.Resolve(event)
	if err != nil {
		a.err = err
		return a
	}
	a.topic = resolved.Descriptor.Topic
	a.eventID = resolved.Envelope.EventID.String()

	pub := s.broker.Topic(a.topic)
	if pub == nil {
		a.err = fmt.Errorf("%w %q", errUnroutable, a.topic)
		return a
	}
	a.attempts++
	if err := pub.Send(ctx, buildMessage(event, resolved.Envelope)); err != nil {
		a.err = err
		return a
	}
	a.published = true
	return a
}

// classify decides whether a failed row stays in the loop.
func classify(err error, attempts, maxAttempts int) (enums.OutboxDLQErrorReason, bool) {
	var nonRetryable registry.NonRetryableError
	switch {
	case errors.Is(err, errUnroutable):
		return enums.OutboxDLQReasonUnroutable, true
	case errors.As(err, &nonRetryable):
		return enums.OutboxDLQReasonNonRetryable, true
	case attempts >= maxAttempts:
		return enums.OutboxDLQReasonMaxAttempts, true
	}
	return "", false
}

// deadLetter copies the row into outbox_dlq and parks it so the fetch query
// never returns it again.
func (s *Service) deadLetter(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, a attempt) error {
	entry := event.DeadLetter(reason, a.err, a.attempts, s.now())
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, a.err, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func fieldsFor(event models.OutboxEvent, a attempt) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  a.attempts,
	}
	if a.topic != "" {
		fields["topic"] = a.topic
	}
	if a.eventID != "" {
		fields["event_id"] = a.eventID
	}
	return fields
}

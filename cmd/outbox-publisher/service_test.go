package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const ordersTopic = "storefront-orders"

func orderEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeJSON(t),
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		AttemptCount:  attempts,
	}
}

func TestDrainRetriesTransientFailureAndContinues(t *testing.T) {
	first, second := orderEvent(t, 0), orderEvent(t, 0)
	h := newHarness(t, config.OutboxConfig{MaxAttempts: 5}, first, second)
	h.sender.errs = []error{errors.New("unavailable"), nil}

	handled, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Equal(t, []uuid.UUID{first.ID}, h.repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, h.repo.published)
	assert.Empty(t, h.dlq.entries)
}

func TestDrainSendsEnvelopeWithAttributes(t *testing.T) {
	event := orderEvent(t, 0)
	event.EventType = enums.EventPaymentRecorded
	event.AggregateType = enums.AggregatePayment
	h := newHarness(t, config.OutboxConfig{}, event)

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.sender.sent, 1)

	msg := h.sender.sent[0]
	assert.JSONEq(t, string(event.Payload), string(msg.Data))
	assert.Equal(t, map[string]string{
		"event_id":       event.ID.String(),
		"event_version":  "1",
		"event_type":     "payment_recorded",
		"aggregate_type": "payment",
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     "2026-03-01T10:00:00Z",
	}, msg.Attributes)
	assert.Equal(t, []string{ordersTopic}, h.broker.asked)
}

func TestDrainDeadLettersBrokenRows(t *testing.T) {
	event := orderEvent(t, 2)
	h := newHarness(t, config.OutboxConfig{MaxAttempts: 5}, event)
	h.resolver.err = registry.NewNonRetryableError(errors.New("unsupported event type"))

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)

	entry := h.dlq.entries[0]
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	assert.Equal(t, 2, entry.AttemptCount, "no broker call was made")
	assert.JSONEq(t, string(event.Payload), string(entry.Payload))
	assert.Equal(t, []uuid.UUID{event.ID}, h.repo.terminal)
	assert.Empty(t, h.sender.sent)
}

func TestDrainDeadLettersWhenAttemptsRunOut(t *testing.T) {
	event := orderEvent(t, 1)
	h := newHarness(t, config.OutboxConfig{MaxAttempts: 2}, event)
	h.sender.errs = []error{errors.New("deadline exceeded")}

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.dlq.entries[0].ErrorReason)
	assert.Equal(t, 2, h.dlq.entries[0].AttemptCount)
	assert.Equal(t, "deadline exceeded", *h.dlq.entries[0].ErrorMessage)
	assert.Empty(t, h.repo.failed)
}

func TestDrainDeadLettersUnroutableTopic(t *testing.T) {
	event := orderEvent(t, 0)
	h := newHarness(t, config.OutboxConfig{}, event)
	h.broker.missing = true

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonUnroutable, h.dlq.entries[0].ErrorReason)
}

func TestDrainAbortsWhenBookkeepingFails(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{}, orderEvent(t, 0), orderEvent(t, 0))
	h.repo.markErr = errors.New("connection lost")

	handled, err := h.svc.drain(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, handled)
	assert.Len(t, h.sender.sent, 1)
}

func TestDrainCountsOutcomes(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{MaxAttempts: 5}, orderEvent(t, 0), orderEvent(t, 0))
	h.sender.errs = []error{nil, errors.New("unavailable")}
	reg := prometheus.NewRegistry()
	h.svc.metrics = metrics.NewOutboxMetrics(reg)

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "storefront_outbox_published_total", "storefront_outbox_publish_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClassify(t *testing.T) {
	transient := errors.New("unavailable")
	cases := []struct {
		name     string
		err      error
		attempts int
		reason   enums.OutboxDLQErrorReason
		terminal bool
	}{
		{"transient under limit", transient, 3, "", false},
		{"transient at limit", transient, 5, enums.OutboxDLQReasonMaxAttempts, true},
		{"non-retryable", registry.NewNonRetryableError(transient), 0, enums.OutboxDLQReasonNonRetryable, true},
		{"unroutable", errUnroutable, 0, enums.OutboxDLQReasonUnroutable, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, terminal := classify(tc.err, tc.attempts, 5)
			assert.Equal(t, tc.reason, reason)
			assert.Equal(t, tc.terminal, terminal)
		})
	}
}

func TestPacer(t *testing.T) {
	p := newPacer(time.Second)
	p.jitter = func() time.Duration { return 0 }

	assert.Equal(t, 2*time.Second, p.failed())
	assert.Equal(t, 4*time.Second, p.failed())
	assert.Equal(t, 8*time.Second, p.failed())
	assert.Equal(t, maxBackoff, p.failed())
	assert.Equal(t, maxBackoff, p.failed())
	assert.Equal(t, time.Second, p.idle())
	assert.Equal(t, 2*time.Second, p.failed())
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{PollIntervalMS: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := h.svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunFailsWhenBrokerUnreachable(t *testing.T) {
	h := newHarness(t, config.OutboxConfig{})
	h.broker.pingErr = errors.New("permission denied")

	err := h.svc.Run(context.Background())
	assert.ErrorContains(t, err, "pubsub ping failed")
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)

	h := newHarness(t, config.OutboxConfig{})
	assert.Equal(t, defaultBatchSize, h.svc.batchSize)
	assert.Equal(t, defaultMaxAttempts, h.svc.maxAttempts)
}

type harness struct {
	svc      *Service
	repo     *fakeRepo
	dlq      *fakeDLQ
	resolver *fakeResolver
	broker   *fakeBroker
	sender   *fakeSender
}

func newHarness(t *testing.T, cfg config.OutboxConfig, events ...models.OutboxEvent) *harness {
	t.Helper()
	h := &harness{
		repo:     &fakeRepo{events: events},
		dlq:      &fakeDLQ{},
		resolver: &fakeResolver{},
		sender:   &fakeSender{},
	}
	h.broker = &fakeBroker{sender: h.sender}
	svc, err := NewService(ServiceParams{
		Outbox:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         fakeDB{},
		Broker:     h.broker,
		Repository: h.repo,
		Resolver:   h.resolver,
		DLQ:        h.dlq,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func envelopeJSON(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"` + uuid.NewString() + `"}`),
	})
	require.NoError(t, err)
	return raw
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
	markErr   error
}

func (f *fakeRepo) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         ordersTopic,
		},
		Envelope: outbox.PayloadEnvelope{Version: 1, EventID: event.ID},
	}, nil
}

type fakeBroker struct {
	sender  *fakeSender
	missing bool
	pingErr error
	asked   []string
}

func (f *fakeBroker) Ping(context.Context) error { return f.pingErr }

func (f *fakeBroker) Topic(name string) sender {
	f.asked = append(f.asked, name)
	if f.missing {
		return nil
	}
	return f.sender
}

type fakeSender struct {
	errs []error
	sent []*gcppubsub.Message
}

func (f *fakeSender) Send(_ context.Context, msg *gcppubsub.Message) error {
	f.sent = append(f.sent, msg)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

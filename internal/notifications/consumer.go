package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const orderNotificationConsumer = "order-notifications"

const (
	outcomeDelivered  = "delivered"
	outcomeDuplicate  = "duplicate"
	outcomeInProgress = "in_progress"
	outcomeSkipped    = "skipped"
	outcomeMalformed  = "malformed"
	outcomeFailed     = "failed"
)

// Message is the part of a Pub/Sub delivery the consumer reads.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// ConsumerParams groups dependencies for the order notification consumer.
type ConsumerParams struct {
	Repo         Repository
	Subscription *pubsub.Subscriber
	Idempotency  *idempotency.Manager
	Mailer       Mailer
	Recipient    string
	Metrics      *metrics.OutboxMetrics
	Logger       *logger.Logger
}

// Consumer turns order_placed events into staff emails.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	mailer       Mailer
	decoders     *registry.PayloadDecoders
	recipient    string
	metrics      *metrics.OutboxMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewConsumer builds an order notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if strings.TrimSpace(params.Recipient) == "" {
		return nil, fmt.Errorf("notification recipient required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         params.Repo,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		mailer:       params.Mailer,
		decoders:     newDecoders(),
		recipient:    strings.TrimSpace(params.Recipient),
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          time.Now,
	}, nil
}

func newDecoders() *registry.PayloadDecoders {
	decoders := registry.NewPayloadDecoders()
	registry.RegisterJSON(decoders, enums.EventOrderPlaced, 1, func(p payloads.OrderPlacedEvent) error {
		if p.OrderID == uuid.Nil {
			return errors.New("order id missing")
		}
		return nil
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("orders subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.Handle(ctx, Message{ID: msg.ID, Data: msg.Data, Attributes: msg.Attributes})
		if result.Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Result tells the receive loop what to do with a message.
type Result struct {
	Nack    bool
	Outcome string
}

// Handle processes one delivery. Poison messages are acked so they never
// loop; delivery failures are nacked for Pub/Sub to redeliver.
func (c *Consumer) Handle(ctx context.Context, msg Message) Result {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	result := c.handle(ctx, logCtx, enums.OutboxEventType(eventType), msg)
	c.metrics.IncConsumed(eventType, result.Outcome)
	return result
}

func (c *Consumer) handle(ctx, logCtx context.Context, eventType enums.OutboxEventType, msg Message) Result {
	if eventType != enums.EventOrderPlaced {
		c.logg.Debug(logCtx, "skipping event")
		return Result{Outcome: outcomeSkipped}
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return Result{Outcome: outcomeMalformed}
	}
	eventID := envelope.EventID
	event, err := registry.DecodeAs[payloads.OrderPlacedEvent](c.decoders, eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return Result{Outcome: outcomeMalformed}
	}

	logCtx = c.logg.WithOrderID(c.logg.WithField(logCtx, "event_id", eventID.String()), event.OrderID.String())
	ran, err := c.idempotency.Once(ctx, orderNotificationConsumer, eventID, func(ctx context.Context) error {
		return c.deliver(ctx, eventID, event)
	})
	if errors.Is(err, idempotency.ErrInProgress) {
		c.logg.Info(logCtx, "event held by another delivery, redelivering later")
		return Result{Nack: true, Outcome: outcomeInProgress}
	}
	if err != nil {
		c.logg.Error(logCtx, "order notification failed", err)
		return Result{Nack: true, Outcome: outcomeFailed}
	}
	if !ran {
		c.logg.Info(logCtx, "event already processed")
		return Result{Outcome: outcomeDuplicate}
	}
	c.logg.Info(logCtx, "order notification sent")
	return Result{Outcome: outcomeDelivered}
}

func (c *Consumer) deliver(ctx context.Context, eventID uuid.UUID, event payloads.OrderPlacedEvent) error {
	// The row outlives the redis marker, so it is the durable dedupe record.
	if _, err := c.repo.FindByEventID(ctx, eventID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup notification: %w", err)
	}

	subject, body := ComposeOrderPlaced(event)
	if err := c.mailer.Send(ctx, Email{To: c.recipient, Subject: subject, Body: body}); err != nil {
		return err
	}

	sentAt := c.now().UTC()
	orderID := event.OrderID
	notification := &models.Notification{
		EventID:   eventID,
		OrderID:   &orderID,
		Channel:   enums.NotificationChannelEmail,
		Recipient: c.recipient,
		Subject:   subject,
		Body:      body,
		SentAt:    &sentAt,
	}
	err := c.repo.Create(ctx, notification)
	if db.IsForeignKeyViolation(err) {
		// Order deleted since placement. The email is out, so keep the
		// dedupe row without the link.
		c.logg.Warn(c.logg.WithField(ctx, "event_id", eventID.String()), "order gone before notification was recorded")
		notification.ID = uuid.Nil
		notification.OrderID = nil
		err = c.repo.Create(ctx, notification)
	}
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

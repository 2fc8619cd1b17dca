package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const publishTimeout = 15 * time.Second

var errUnroutable = errors.New("no publisher for topic")

// broker hands out a sender per topic; nil means the topic is not served.
type broker interface {
	Ping(context.Context) error
	Topic(name string) sender
}

type sender interface {
	Send(ctx context.Context, msg *gcppubsub.Message) error
}

// buildMessage carries the stored envelope verbatim; attributes let
// subscribers filter without parsing the body.
func buildMessage(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       envelope.EventID.String(),
			"event_version":  strconv.Itoa(envelope.Version),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

// gcpBroker adapts pkg/pubsub.Client, whose publishers are cached per topic.
type gcpBroker struct {
	client topicSource
}

func newGCPBroker(client topicSource) *gcpBroker {
	return &gcpBroker{client: client}
}

func (b *gcpBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx)
}

func (b *gcpBroker) Topic(name string) sender {
	p := b.client.Publisher(name)
	if p == nil {
		return nil
	}
	return gcpSender{p: p}
}

type gcpSender struct {
	p *gcppubsub.Publisher
}

// Send blocks until the server acks the message or publishTimeout passes.
func (s gcpSender) Send(ctx context.Context, msg *gcppubsub.Message) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err := s.p.Publish(ctx, msg).Get(ctx)
	return err
}

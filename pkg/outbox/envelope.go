package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var errEmptyData = errors.New("envelope carries no data")

// ActorRef names the user whose request produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
}

// PayloadEnvelope is what outbox_events.payload holds. The publisher ships
// it unchanged as the message body, so consumers decode the same shape.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    uuid.UUID       `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses raw and rejects envelopes that no consumer could act
// on: a missing event id or version, or empty data.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch {
	case env.EventID == uuid.Nil:
		return PayloadEnvelope{}, errors.New("envelope missing eventId")
	case env.Version < 1:
		return PayloadEnvelope{}, fmt.Errorf("envelope version %d", env.Version)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, errEmptyData
	}
	return env, nil
}

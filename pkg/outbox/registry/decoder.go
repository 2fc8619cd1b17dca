package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ErrNoDecoder is returned for an event type/version pair nobody registered.
var ErrNoDecoder = errors.New("no payload decoder registered")

// PayloadDecoders maps an event type and envelope version to a decoder for
// the envelope's data field. Consumers register only what they understand.
type PayloadDecoders struct {
	mu       sync.RWMutex
	decoders map[string]func(json.RawMessage) (any, error)
}

func NewPayloadDecoders() *PayloadDecoders {
	return &PayloadDecoders{decoders: map[string]func(json.RawMessage) (any, error){}}
}

func decoderKey(eventType enums.OutboxEventType, version int) string {
	return fmt.Sprintf("%s@v%d", eventType, version)
}

// RegisterJSON binds eventType@version to a JSON decode into T. check, when
// set, rejects payloads that parse but are unusable.
func RegisterJSON[T any](d *PayloadDecoders, eventType enums.OutboxEventType, version int, check func(T) error) {
	key := decoderKey(eventType, version)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decoders[key] = func(raw json.RawMessage) (any, error) {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if check != nil {
			if err := check(payload); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
		return payload, nil
	}
}

// DecodeAs runs the registered decoder and asserts the result type.
func DecodeAs[T any](d *PayloadDecoders, eventType enums.OutboxEventType, version int, raw json.RawMessage) (T, error) {
	var zero T
	key := decoderKey(eventType, version)
	d.mu.RLock()
	decode, ok := d.decoders[key]
	d.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNoDecoder, key)
	}
	out, err := decode(raw)
	if err != nil {
		return zero, err
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%s decoded to %T", key, out)
	}
	return typed, nil
}

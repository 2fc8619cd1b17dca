package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// IntRange bounds a numeric query parameter. Default applies when the
// parameter is absent.
type IntRange struct {
	Default int
	Min     int
	Max     int
}

func ParseQueryInt(r *http.Request, key string, bounds IntRange) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return bounds.Default, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a whole number", key).
			WithDetails(map[string]any{"field": key})
	}
	if value < bounds.Min || value > bounds.Max {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, bounds.Min, bounds.Max).
			WithDetails(map[string]any{"field": key, "min": bounds.Min, "max": bounds.Max})
	}
	return value, nil
}

// ParseQueryUUID returns nil when the parameter is absent.
func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).
			WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

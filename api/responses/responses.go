// Package responses writes the JSON envelopes shared by every handler.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError maps err to its HTTP status and public envelope. Untyped errors
// become INTERNAL_ERROR; details only leave the process for codes that allow
// them. 5xx responses are logged as errors, everything else as a rejection.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := APIError{
		Code:      string(typed.Code()),
		Message:   typed.PublicMessage(),
		RequestID: logger.RequestID(ctx),
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}
	if meta.HTTPStatus == http.StatusServiceUnavailable && pkgerrors.Retryable(typed) {
		w.Header().Set("Retry-After", dependencyRetryAfter)
	}
	writeJSON(w, meta.HTTPStatus, ErrorEnvelope{Error: body})
}

// seconds a client should wait after a DEPENDENCY_ERROR
const dependencyRetryAfter = "2"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure can only truncate.
	_ = json.NewEncoder(w).Encode(payload)
}

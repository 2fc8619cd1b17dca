package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// action reads what it needs from r and returns the value to render.
type action func(r *http.Request) (any, error)

// endpoint adapts an action to net/http. Results are written with status;
// errors go through the shared envelope. When ready is false (the service
// was never wired) every request fails with INTERNAL_ERROR.
func endpoint(logg *logger.Logger, service string, ready bool, status int, act action) http.HandlerFunc {
	unavailable := pkgerrors.New(pkgerrors.CodeInternal, service+" service unavailable")
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready {
			responses.WriteError(r.Context(), logg, w, unavailable)
			return
		}
		result, err := act(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// bind decodes and validates the JSON body into a fresh T.
func bind[T any](r *http.Request) (T, error) {
	var body T
	err := validators.DecodeJSONBody(r, &body)
	return body, err
}

// owned resolves the caller plus the resource id in the named path param.
func owned(r *http.Request, param, label string) (userID, id uuid.UUID, err error) {
	if userID, err = userIDFromRequest(r); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if id, err = uuidParam(r, param, label); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, id, nil
}

// wrap names a bare collection in the response object, e.g. {"addresses": [...]}.
func wrap(key string, value any, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return map[string]any{key: value}, nil
}

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// Recoverer turns a handler panic into a 500 envelope and logs the stack.
// It sits outside Metrics, so it counts panics itself. http.ErrAbortHandler
// is re-panicked so net/http can drop the connection.
func Recoverer(logg *logger.Logger, m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				m.Panic(routePattern(r))

				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "stack", string(debug.Stack()))
				}
				err := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", v), "handler panicked")
				if rec.status != 0 {
					// headers are gone; all that is left is to record it
					if logg != nil {
						logg.Error(ctx, "panic after response started", err)
					}
					return
				}
				responses.WriteError(ctx, logg, w, err)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

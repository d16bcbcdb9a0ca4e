package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"chibi-bot/pkg/logging"
)

// Recoverer catches panics from downstream handlers, logs them with the
// stack, and answers 500. One bad update must never take the process down.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger := logging.L(r.Context())
					logger.Error("panic recovered",
						zap.Any("error", rec),
						zap.ByteString("stack", debug.Stack()),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"status":"error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

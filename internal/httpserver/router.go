package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"chibi-bot/internal/handlers"
	"chibi-bot/internal/metrics"
	"chibi-bot/internal/middleware"
)

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, webhook *handlers.WebhookHandler) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	// Conversation replies wait on the AI provider (60s timeout plus
	// retries), so the request budget is generous.
	r.Use(middleware.Timeout(3 * time.Minute))
	r.Use(middleware.MaxBodySize(1 * 1024 * 1024)) // 1 MB max body

	// Telegram pushes updates here; the token in the path is the shared
	// secret.
	r.Post("/webhook/{token}", webhook.HandleUpdate)

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apiMiddleware "github.com/phrazzld/scry-quizgen/internal/api/middleware"
)

// NewRouter builds the progress server's routes.
func NewRouter(progress ProgressSource, results ResultSource, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := NewProgressHandler(progress, results)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(log.With("component", "progress_api")))

	r.Route("/api", func(r chi.Router) {
		r.Get("/progress", h.GetProgress)
		r.Get("/units", h.ListUnits)
		r.Get("/units/{unitID}", h.GetUnit)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", "error", err)
		}
	})

	return otelhttp.NewHandler(r, "progress")
}

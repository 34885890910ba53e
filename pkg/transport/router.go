package transport

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runbox-dev/runbox/pkg/observability"
)

// Router builds the HTTP routing tree with the full middleware chain:
// panic recovery, request IDs, structured logging, CORS, metrics, and
// rate limiting on the execute endpoints.
func (h *Handler) Router(logger *slog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	execute := r.NewRoute().Subrouter()
	execute.HandleFunc("/execute", h.handleExecute).Methods(http.MethodPost)
	execute.HandleFunc("/execute-with-files", h.handleExecuteWithFiles).Methods(http.MethodPost)
	execute.HandleFunc("/execute-advanced", h.handleExecuteAdvanced).Methods(http.MethodPost)

	limiter := newRateLimiter(h.config.RateLimitPerMinute)
	execute.Use(limiter.middleware)

	if h.config.Observability.Metrics.Enabled {
		r.Handle(h.config.Observability.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
	)

	var handler http.Handler = r
	handler = cors(handler)
	handler = observability.MetricsMiddleware(handler)
	handler = logging(logger)(handler)
	handler = requestID(handler)
	handler = recovery(handler)
	return handler
}

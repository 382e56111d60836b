// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"log/slog"
	"net/http"

	"bmicalc/internal/app"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	bmi      *app.BMIService
	sessions *app.SessionService
	metrics  http.Handler
	log      *slog.Logger
	webDir   string
}

// New creates a Server wired to the given application services. metrics may
// be nil to leave /metrics unrouted; logger may be nil.
func New(bs *app.BMIService, ss *app.SessionService, metrics http.Handler, logger *slog.Logger, webDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{bmi: bs, sessions: ss, metrics: metrics, log: logger, webDir: webDir}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.Handle("/bmi", s.sessionMiddleware(http.HandlerFunc(s.handleCalculate)))
	api.Handle("/bmi/history", s.sessionMiddleware(http.HandlerFunc(s.handleHistory)))
	api.HandleFunc("/session", s.handleEndSession)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	if s.metrics != nil {
		root.Handle("/metrics", s.metrics)
	}
	root.Handle("/", pageHandler(s.webDir))

	return withNoCache(s.loggingMiddleware(root))
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
	"github.com/couchcryptid/quake-dashboard/internal/refresh"
)

// Dashboard is the session state the API reads and the map controls drive.
type Dashboard interface {
	Snapshot() dashboard.Snapshot
	SetDaysBack(days int) error
	Focus(id string) error
	FocusHighlight() error
}

// Scheduler is the refresh orchestrator as seen by the user controls.
type Scheduler interface {
	sharedobs.ReadinessChecker
	Status() refresh.Status
	RefreshNow(ctx context.Context)
	SetEnabled(enabled bool) refresh.Status
	SetInterval(raw string) refresh.Status
}

// Server exposes the dashboard page, its JSON API and controls, a WebSocket
// feed, and health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	sched      Scheduler
	hub        *Hub
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, dash Dashboard, sched Scheduler, hub *Hub, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			// No WriteTimeout: it would cut long-lived WebSocket connections.
			IdleTimeout: 60 * time.Second,
		},
		dash:   dash,
		sched:  sched,
		hub:    hub,
		logger: logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(sched))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", s.handlePage)
	r.Get("/ws", hub.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/refresh", s.handleRefresh)
		r.Put("/refresh/enabled", s.handleSetEnabled)
		r.Put("/refresh/interval", s.handleSetInterval)
		r.Put("/range", s.handleSetRange)
		r.Post("/map/focus/{id}", s.handleFocus)
		r.Post("/map/focus-highlight", s.handleFocusHighlight)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline
// and closes open WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

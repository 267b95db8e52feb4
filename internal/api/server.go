package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/slackagent/internal/auth"
	"github.com/mattjoyce/slackagent/internal/cost"
	"github.com/mattjoyce/slackagent/internal/dispatch"
	"github.com/mattjoyce/slackagent/internal/events"
	"github.com/mattjoyce/slackagent/internal/history"
)

// Scopes understood by the admin API.
const (
	ScopeTasksRead   = "tasks:ro"
	ScopeTasksWrite  = "tasks:rw"
	ScopeHistoryRead = "history:ro"
	ScopeEventsRead  = "events:ro"
	ScopeMetrics     = "metrics:ro"
)

// TaskRegistry is the live view of the dispatcher.
type TaskRegistry interface {
	Channels() []string
	Running(channelID string) []dispatch.Snapshot
	Pending(channelID string) []dispatch.Snapshot
	Cancel(channelID string) bool
}

// HistoryReader reads the persisted task log.
type HistoryReader interface {
	List(ctx context.Context, f history.Filter) ([]history.Record, error)
	Get(ctx context.Context, id string) (*history.Record, error)
}

// BudgetReader reports the current month's spend.
type BudgetReader interface {
	Budget() float64
	MonthlySpend(ctx context.Context) (float64, error)
	SpendByChannel(ctx context.Context) ([]cost.ChannelSpend, error)
}

// EventStream is the source of the SSE feed.
type EventStream interface {
	Follow(afterID int64, channel string) ([]events.Event, <-chan events.Event, func())
	Subscribers() int
}

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey is the legacy single bearer token (admin/full access).
	APIKey string
	// Tokens is an optional list of scoped bearer tokens.
	Tokens []auth.TokenConfig
}

// Server is the authenticated admin API.
type Server struct {
	config    Config
	keyring   *auth.Keyring
	tasks     TaskRegistry
	history   HistoryReader
	budget    BudgetReader
	events    EventStream
	metrics   http.Handler
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// Options carries the optional collaborators of the admin API.
type Options struct {
	Budget  BudgetReader
	Metrics http.Handler
}

// New creates a new API server instance
func New(config Config, tasks TaskRegistry, hist HistoryReader, stream EventStream, opts Options, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		keyring:   auth.NewKeyring(config.APIKey, config.Tokens),
		tasks:     tasks,
		history:   hist,
		budget:    opts.Budget,
		events:    stream,
		metrics:   opts.Metrics,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: /events is a long-lived stream.
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoints.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/openapi.json", s.handleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.requireScopes(ScopeTasksRead)).Get("/channels", s.handleListChannels)
		r.With(s.requireScopes(ScopeTasksRead)).Get("/channels/{channel}/tasks", s.handleChannelTasks)
		r.With(s.requireScopes(ScopeTasksWrite)).Delete("/channels/{channel}/task", s.handleCancelTask)
		r.With(s.requireScopes(ScopeHistoryRead)).Get("/history", s.handleListHistory)
		r.With(s.requireScopes(ScopeHistoryRead)).Get("/history/{taskID}", s.handleGetTask)
		r.With(s.requireScopes(ScopeHistoryRead)).Get("/budget", s.handleBudget)
		r.With(s.requireScopes(ScopeEventsRead)).Get("/events", s.handleEvents)
		if s.metrics != nil {
			r.With(s.requireScopes(ScopeMetrics)).Method(http.MethodGet, "/metrics", s.metrics)
		}
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

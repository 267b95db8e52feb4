package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/slackagent/internal/command"
)

// mentionTimeout bounds the hint reply posted for an @mention.
const mentionTimeout = 10 * time.Second

// Server receives Slack slash commands and Events API callbacks.
type Server struct {
	config   Config
	commands CommandHandler
	notifier Notifier
	logger   *slog.Logger
	server   *http.Server
	now      func() time.Time
}

// New creates a new Slack inbound server.
func New(config Config, commands CommandHandler, notifier Notifier, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	return &Server{
		config:   config,
		commands: commands,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("slack server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("slack server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("slack server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("slack server error: %w", err)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/slack/health", func(w http.ResponseWriter, _ *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Group(func(r chi.Router) {
		r.Use(s.verifyMiddleware)
		r.Post("/slack/commands", s.handleCommand)
		r.Post("/slack/events", s.handleEvent)
	})
	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("slack request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// verifyMiddleware enforces the body limit and the Slack request signature,
// then hands the buffered body on to the handler.
func (s *Server) verifyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to read request body")
			return
		}
		if int64(len(body)) > s.config.MaxBodySize {
			s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}

		if err := verifySlackSignature(body, r.Header.Get(HeaderTimestamp), r.Header.Get(HeaderSignature), s.config.SigningSecret, s.now()); err != nil {
			s.logger.Warn("slack signature verification failed", "path", r.URL.Path, "error", err)
			s.respondError(w, http.StatusForbidden, "forbidden")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	form, err := url.ParseQuery(string(body))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	req := command.Request{
		Command:   form.Get("command"),
		Text:      form.Get("text"),
		UserID:    form.Get("user_id"),
		ChannelID: form.Get("channel_id"),
	}
	if req.Command == "" || req.ChannelID == "" {
		s.respondError(w, http.StatusBadRequest, "command and channel_id are required")
		return
	}

	s.respondJSON(w, http.StatusOK, s.commands.Handle(r.Context(), req))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var env eventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if env.Type == "url_verification" || env.Challenge != "" {
		s.respondJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	}

	// Slack retries when the first delivery was slow; the first one was handled.
	if r.Header.Get(HeaderRetryNum) != "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if ev := env.Event; ev != nil && ev.Type == "app_mention" && ev.BotID == "" && ev.BotProfile == nil && ev.Subtype == "" {
		s.replyToMention(r.Context(), ev)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) replyToMention(ctx context.Context, ev *slackEvent) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mentionTimeout)
	defer cancel()

	var err error
	if ev.ThreadTS != "" {
		_, err = s.notifier.PostToThread(ctx, ev.Channel, ev.ThreadTS, command.ThreadMentionHint)
	} else {
		_, err = s.notifier.PostNew(ctx, ev.Channel, command.MentionHint)
	}
	if err != nil {
		s.logger.Warn("failed to reply to mention", "channel", ev.Channel, "error", err)
	}
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

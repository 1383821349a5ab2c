// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/chatapi"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxInputLength is the maximum length of the new user input.
	MaxInputLength = 100000

	// MaxMessageCount is the maximum number of history messages in a request.
	MaxMessageCount = chatapi.MaxHistory

	// MaxRequestBodySize is the maximum size for a request body (4MB).
	MaxRequestBodySize = 4 * 1024 * 1024

	// Version is the server version.
	Version = "0.3.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Config configures a Server.
type Config struct {
	Addr          string
	Token         string
	LoginRedirect string
	// RateLimit is requests per second per client (0 = unlimited)
	RateLimit float64
	Burst     int
	Logger    zerolog.Logger
}

// Server serves the streaming chat endpoint and its companions.
type Server struct {
	config  Config
	backend Backend
	router  *http.ServeMux
	server  *http.Server
	logger  zerolog.Logger

	requests atomic.Int64
	started  time.Time
}

// New creates a Server answering with backend.
func New(config Config, backend Backend) *Server {
	if config.LoginRedirect == "" {
		config.LoginRedirect = "/login"
	}
	s := &Server{
		config:  config,
		backend: backend,
		router:  http.NewServeMux(),
		logger:  config.Logger.With().Str("component", "server").Logger(),
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes. Only the chat endpoint is behind
// authentication and rate limiting.
func (s *Server) setupRoutes() {
	var limiter *RateLimiter
	if s.config.RateLimit > 0 {
		limiter = NewRateLimiter(s.config.RateLimit, s.config.Burst)
	}
	chat := Chain(
		AuthMiddleware(AuthConfig{BearerToken: s.config.Token, LoginRedirect: s.config.LoginRedirect}, s.logger),
		RateLimitMiddleware(limiter, s.logger),
	)(http.HandlerFunc(s.handleChat))

	s.router.Handle("POST /api/chat", chat)
	s.router.HandleFunc("GET /api/schema", s.handleSchema)
	s.router.HandleFunc("GET /api/health", s.handleHealth)
	s.router.HandleFunc("GET /login", s.handleLogin)
}

// Handler returns the router wrapped in the global middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger),
	)(s.router)
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /api/chat. The body is plain text: reply content,
// then optionally the delimiter and one augmentation JSON document.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req chatapi.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", MaxRequestBodySize))
			return
		}
		s.logger.Debug().Err(err).Msg("invalid request body")
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if msg := validateRequest(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	s.requests.Add(1)
	started := false
	emit := func(part string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(part)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := s.backend.Reply(r.Context(), req, emit)
	switch {
	case err == nil:
		if !started {
			// Empty reply is still a valid, empty stream
			_ = emit("")
		}
	case !started:
		s.logger.Error().Err(err).Str("backend", s.backend.Name()).Msg("backend failed")
		writeError(w, http.StatusBadGateway, "upstream model unavailable")
	default:
		// Headers are gone; the client sees a truncated stream
		s.logger.Warn().Err(err).Str("backend", s.backend.Name()).Msg("stream aborted")
	}
}

// validateRequest returns a client-facing message for an invalid request.
func validateRequest(req chatapi.Request) string {
	if strings.TrimSpace(req.Input) == "" {
		return "input must not be empty"
	}
	if len(req.Input) > MaxInputLength {
		return fmt.Sprintf("input exceeds maximum length of %d", MaxInputLength)
	}
	if len(req.Messages) > MaxMessageCount {
		return fmt.Sprintf("too many messages: maximum is %d", MaxMessageCount)
	}
	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return fmt.Sprintf("invalid role %q at message %d", m.Role, i)
		}
	}
	return ""
}

// ============================================================================
// OTHER HANDLERS
// ============================================================================

// handleSchema handles GET /api/schema.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	data, err := augment.SchemaJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "schema unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.Write(data)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Backend       string `json:"backend"`
	BackendStatus string `json:"backend_status"`
	Requests      int64  `json:"requests"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:        "ok",
		Version:       Version,
		Backend:       s.backend.Name(),
		BackendStatus: "ok",
		Requests:      s.requests.Load(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if hc, ok := s.backend.(HealthChecker); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := hc.Check(ctx); err != nil {
			health.Status = "degraded"
			health.BackendStatus = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, health)
}

// handleLogin handles GET /login. There is no identity provider behind the
// reference server; the page just explains how to supply a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "augchat reference server")
	fmt.Fprintln(w, "Set endpoint.token (or AUGCHAT_TOKEN) to the server token and retry.")
	if cb := r.URL.Query().Get("callbackUrl"); cb != "" {
		fmt.Fprintf(w, "Return to: %s\n", cb)
	}
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Str("backend", s.backend.Name()).Str("version", Version).Msg("server started")
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an {error} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, chatapi.ErrorBody{Error: message})
}

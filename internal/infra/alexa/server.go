// Package alexa serves the skill over the voice platform's HTTPS webhook.
package alexa

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"particle-skill/internal/domain"
)

const maxBodyBytes = 64 << 10

// TurnHandler answers one voice turn.
type TurnHandler interface {
	Handle(ctx context.Context, turn domain.Turn) domain.Response
}

type Config struct {
	Addr string
	// AuthToken, when set, must be sent as X-Auth-Token or ?token=.
	AuthToken string
	// ApplicationID, when set, rejects requests addressed to another skill.
	ApplicationID string
	RateLimit     int
	RateWindow    time.Duration

	// TrustProxyHeaders keys the rate limit on forwarded client headers.
	TrustProxyHeaders bool
}

type Server struct {
	cfg     Config
	skill   TurnHandler
	logger  *slog.Logger
	mux     *http.ServeMux
	limiter *RateLimiter

	mu      sync.Mutex
	server  *http.Server
	running bool
}

// NewServer wires the routes. metrics may be nil to leave /metrics unserved.
func NewServer(cfg Config, skill TurnHandler, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		skill:   skill,
		logger:  logger,
		mux:     http.NewServeMux(),
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow).TrustProxyHeaders(cfg.TrustProxyHeaders),
	}
	s.mux.HandleFunc("POST /alexa", s.limiter.Middleware(s.handleAlexa))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the listen address and serves in the background. A failed bind
// is returned to the caller.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	server := s.server
	go func() {
		s.logger.Info("skill endpoint listening", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

func (s *Server) handleAlexa(w http.ResponseWriter, r *http.Request) {
	turnID := uuid.NewString()
	w.Header().Set("X-Request-ID", turnID)
	logger := s.logger.With("turn_id", turnID)

	if !s.authorized(r) {
		rejectedTotal.WithLabelValues("unauthorized").Inc()
		logger.Warn("unauthorized skill request", "remote_addr", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(data) > maxBodyBytes {
		rejectedTotal.WithLabelValues("too_large").Inc()
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		rejectedTotal.WithLabelValues("invalid").Inc()
		logger.Warn("rejecting envelope", "error", err)
		http.Error(w, "invalid request envelope", http.StatusBadRequest)
		return
	}

	if s.cfg.ApplicationID != "" && env.ApplicationID() != s.cfg.ApplicationID {
		rejectedTotal.WithLabelValues("wrong_application").Inc()
		logger.Warn("request for another skill", "application_id", env.ApplicationID())
		http.Error(w, "unknown application", http.StatusForbidden)
		return
	}

	resp := s.skill.Handle(r.Context(), env.Turn())

	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(NewResponseEnvelope(resp)); err != nil {
		logger.Error("writing response", "error", err)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}
	token := r.Header.Get("X-Auth-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK

	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"status":%q,"running":%t}`, status, running)
}

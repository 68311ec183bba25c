// Package httpapi serves the search adapter over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"searchforge/internal/adapter/tool"
	"searchforge/internal/domain"
	"searchforge/internal/infra/config"
	"searchforge/internal/infra/middleware"
)

// Searcher runs a multi-query search.
type Searcher interface {
	Search(ctx context.Context, queries []string, opts ...tool.SearchOption) (*tool.SearchResults, error)
}

// Server is the HTTP front end.
type Server struct {
	cfg      config.ServerConfig
	searcher Searcher
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	server    *http.Server
	boundAddr string
	cancel    context.CancelFunc
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

// New creates a server. gatherer may be nil, in which case /metrics is not served.
func New(cfg config.ServerConfig, searcher Searcher, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, searcher: searcher, gatherer: gatherer, logger: logger}
}

// Handler returns the routed handler with middleware applied. The rate
// limiter's sweeper is bound to ctx.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	var h http.Handler = mux
	if s.cfg.RequestsPerMinute > 0 {
		h = middleware.RateLimit(ctx, middleware.RateLimitConfig{
			RequestsPerMin: s.cfg.RequestsPerMinute,
			BurstSize:      s.cfg.Burst,
			TrustedProxies: s.cfg.TrustedProxies,
		})(h)
	}
	h = middleware.SecurityHeaders(h)
	return middleware.RequestLogger(s.logger)(h)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.boundAddr = ln.Addr().String()

	go func() {
		s.logger.Info("http server started", "addr", s.boundAddr)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address after Start.
func (s *Server) Addr() string { return s.boundAddr }

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.cancel()
	return err
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	queries := q["q"]

	var opts []tool.SearchOption
	if raw := q.Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, domain.NewDomainError("httpapi.search", domain.ErrInvalidInput,
				fmt.Sprintf("max_results %q is not an integer", raw)))
			return
		}
		opts = append(opts, tool.WithMaxResults(n))
	}

	res, err := s.searcher.Search(r.Context(), queries, opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Warn("search request failed",
			"request_id", middleware.RequestID(r.Context()),
			"queries", strings.Join(r.URL.Query()["q"], " | "),
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: domain.ErrorCodeOf(err)})
}

// statusFor maps a search error to an HTTP status.
func statusFor(err error) int {
	var re *tool.RetrievalError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &re):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads this.
		return 499
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

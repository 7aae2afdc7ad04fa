package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tunaaoguzhann/fixedwindow/core"
	"github.com/tunaaoguzhann/fixedwindow/internal/config"
	"github.com/tunaaoguzhann/fixedwindow/internal/observability"
)

const metricsPath = "/metrics"

type Server struct {
	router  *chi.Mux
	server  *http.Server
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New wires the limiter in front of the upstream API. metrics may be nil.
func New(cfg *config.Config, limiter core.RateLimiter, logger *zap.Logger, metrics *observability.Metrics) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	upstream, err := upstreamHandler(cfg.Upstream.URL, logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	if cfg.Server.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(RateLimit(RateLimitConfig{
		Limiter:       limiter,
		ExcludedPaths: excludedPaths(cfg.Limit.ExcludedPaths, metrics != nil),
		Logger:        logger,
		Metrics:       metrics,
	}))

	r.Get("/healthz", handleHealth)
	if metrics != nil {
		r.Method(http.MethodGet, metricsPath, metrics.Handler())
	}
	r.Handle("/*", upstream)

	return &Server{
		router: r,
		server: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      r,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Start blocks until the server stops. It returns http.ErrServerClosed after
// Shutdown, even when Shutdown ran first.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.Int("max_requests", s.cfg.Limit.MaxRequests),
		zap.Duration("window", s.cfg.Limit.Window),
		zap.String("upstream", s.cfg.Upstream.URL),
		zap.Bool("trust_proxy_headers", s.cfg.Server.TrustProxyHeaders))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// excludedPaths drops /metrics when metrics are off, so the path is counted
// like any other upstream request.
func excludedPaths(paths []string, metricsEnabled bool) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == metricsPath && !metricsEnabled {
			continue
		}
		out = append(out, p)
	}
	return out
}

func upstreamHandler(rawURL string, logger *zap.Logger) (http.Handler, error) {
	if rawURL == "" {
		return http.HandlerFunc(handleEcho), nil
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("upstream request failed",
			zap.String("upstream", target.String()),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusBadGateway, rejectionBody{
			Success: false,
			Message: "Upstream unavailable.",
		})
	}
	return proxy, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type echoResponse struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
	Path    string `json:"path"`
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, echoResponse{
		Success: true,
		Method:  r.Method,
		Path:    r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

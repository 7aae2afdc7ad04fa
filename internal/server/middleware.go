package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tunaaoguzhann/fixedwindow/core"
	"github.com/tunaaoguzhann/fixedwindow/internal/observability"
)

const (
	RequestIDHeader          = "X-Request-ID"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

type requestIDContextKey struct{}

// RequestID reuses an incoming X-Request-ID or generates a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("client", ClientID(r)),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// ClientID keys requests by source IP. RemoteAddr only reflects proxy headers
// when chi's RealIP runs first. Requests without a usable address share
// core.UnknownClient.
func ClientID(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return core.UnknownClient
	}
	return addr
}

type RateLimitConfig struct {
	Limiter       core.RateLimiter
	ExcludedPaths []string
	ClientID      func(r *http.Request) string
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

type rejectionBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RateLimit rejects clients over their window quota with a 429. A store
// failure lets the request through.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.ClientID == nil {
		cfg.ClientID = ClientID
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	excluded := make(map[string]bool, len(cfg.ExcludedPaths))
	for _, p := range cfg.ExcludedPaths {
		excluded[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excluded[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			clientID := cfg.ClientID(r)
			d, err := cfg.Limiter.Allow(r.Context(), clientID)
			if err != nil {
				cfg.Metrics.ObserveStoreError()
				cfg.Logger.Error("rate limit check failed",
					zap.String("client", clientID),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			cfg.Metrics.ObserveDecision(d.Admitted)

			h := w.Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
			if d.Admitted {
				h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
				next.ServeHTTP(w, r)
				return
			}

			h.Set(HeaderRateLimitRemaining, "0")
			h.Set(HeaderRateLimitReset, strconv.FormatInt(d.ResetAt, 10))
			h.Set(HeaderRetryAfter, strconv.FormatInt(d.RetryAfter, 10))
			cfg.Logger.Debug("rate limited",
				zap.String("client", clientID),
				zap.Int("count", d.Count),
				zap.Int64("retry_after", d.RetryAfter))
			writeJSON(w, http.StatusTooManyRequests, rejectionBody{
				Success: false,
				Message: d.Message(),
			})
		})
	}
}

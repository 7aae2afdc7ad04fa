package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunaaoguzhann/fixedwindow/core"
	"github.com/tunaaoguzhann/fixedwindow/internal/config"
	"github.com/tunaaoguzhann/fixedwindow/internal/observability"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1"},
		Limit: config.LimitConfig{
			MaxRequests:   5,
			Window:        time.Minute,
			ExcludedPaths: []string{"/healthz", "/metrics"},
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, now func() time.Time) (*Server, *core.Limiter) {
	t.Helper()
	limiter, err := core.NewMemoryLimiterWithOptions(core.Options{
		MaxRequests: cfg.Limit.MaxRequests,
		Window:      cfg.Limit.Window,
		Now:         now,
	})
	require.NoError(t, err)

	srv, err := New(cfg, limiter, nil, observability.NewMetrics(limiter.Clients))
	require.NoError(t, err)
	return srv, limiter
}

func doRequest(h http.Handler, path, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsSixthRequest(t *testing.T) {
	now := time.UnixMilli(1000)
	srv, _ := newTestServer(t, testConfig(), func() time.Time { return now })

	for i := 0; i < 5; i++ {
		rec := doRequest(srv.Handler(), "/api/items", "1.2.3.4:5555", nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
	}

	now = time.UnixMilli(1500)
	rec := doRequest(srv.Handler(), "/api/items", "1.2.3.4:6666", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "61", rec.Header().Get(HeaderRateLimitReset))
	assert.Equal(t, "60", rec.Header().Get(HeaderRetryAfter))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Too many requests. Please try again in 60 seconds.", body["message"])

	now = time.UnixMilli(61500)
	rec = doRequest(srv.Handler(), "/api/items", "1.2.3.4:5555", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get(HeaderRateLimitRemaining))
}

func TestRateLimitIgnoresProxyHeadersByDefault(t *testing.T) {
	srv, limiter := newTestServer(t, testConfig(), nil)

	for i := 0; i < 5; i++ {
		rec := doRequest(srv.Handler(), "/", "198.51.100.9:4000", map[string]string{
			"X-Forwarded-For": fmt.Sprintf("10.9.0.%d", i),
			"X-Real-IP":       fmt.Sprintf("10.8.0.%d", i),
			"True-Client-IP":  fmt.Sprintf("10.7.0.%d", i),
		})
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := doRequest(srv.Handler(), "/", "198.51.100.9:4001", map[string]string{"X-Forwarded-For": "10.9.0.99"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, limiter.Clients())
}

func TestRateLimitUsesForwardedClientIPWhenTrusted(t *testing.T) {
	cfg := testConfig()
	cfg.Limit.MaxRequests = 1
	cfg.Server.TrustProxyHeaders = true
	srv, limiter := newTestServer(t, cfg, nil)

	rec := doRequest(srv.Handler(), "/", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.7"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(srv.Handler(), "/", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.8"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(srv.Handler(), "/", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.7"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Equal(t, 2, limiter.Clients())
}

func TestRateLimitMissingAddressSharesUnknownBucket(t *testing.T) {
	cfg := testConfig()
	cfg.Limit.MaxRequests = 1
	srv, limiter := newTestServer(t, cfg, nil)

	rec := doRequest(srv.Handler(), "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(srv.Handler(), "/", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	d, err := limiter.Allow(context.Background(), core.UnknownClient)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Count)
}

func TestExcludedPathsBypassLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Limit.MaxRequests = 1
	srv, limiter := newTestServer(t, cfg, nil)

	for i := 0; i < 3; i++ {
		rec := doRequest(srv.Handler(), "/healthz", "1.2.3.4:1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
	}
	rec := doRequest(srv.Handler(), "/metrics", "1.2.3.4:1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, limiter.Clients())
}

func TestMetricsPathCountedWhenMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Limit.MaxRequests = 1
	limiter, err := core.NewMemoryLimiterWithOptions(core.Options{MaxRequests: 1, Window: time.Minute})
	require.NoError(t, err)
	srv, err := New(cfg, limiter, nil, nil)
	require.NoError(t, err)

	rec := doRequest(srv.Handler(), "/metrics", "1.2.3.4:1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(srv.Handler(), "/metrics", "1.2.3.4:1", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doRequest(srv.Handler(), "/healthz", "1.2.3.4:1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExcludedPathsFilter(t *testing.T) {
	paths := []string{"/healthz", "/metrics", "/status"}
	assert.Equal(t, paths, excludedPaths(paths, true))
	assert.Equal(t, []string{"/healthz", "/status"}, excludedPaths(paths, false))
}

func TestProxiesToUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.Upstream.URL = upstream.URL
	srv, _ := newTestServer(t, cfg, nil)

	rec := doRequest(srv.Handler(), "/v1/orders", "1.2.3.4:1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Upstream"))
	assert.Equal(t, "/v1/orders", rec.Body.String())
}

func TestNewRejectsBadUpstream(t *testing.T) {
	cfg := testConfig()
	cfg.Upstream.URL = "http://[::1"
	_, err := New(cfg, nil, nil, nil)
	require.Error(t, err)
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (core.Decision, error) {
	return core.Decision{}, errors.New("store down")
}

func TestRateLimitFailsOpenOnError(t *testing.T) {
	h := RateLimit(RateLimitConfig{Limiter: erroringLimiter{}})(http.HandlerFunc(handleEcho))

	rec := doRequest(h, "/", "1.2.3.4:1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	rec := doRequest(srv.Handler(), "/", "1.2.3.4:1", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = doRequest(srv.Handler(), "/", "1.2.3.4:1", map[string]string{RequestIDHeader: "abc"})
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func TestGetRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))

	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	rec := doRequest(h, "/", "1.2.3.4:1", map[string]string{RequestIDHeader: "req-1"})
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
}

func TestClientID(t *testing.T) {
	cases := map[string]string{
		"1.2.3.4:80": "1.2.3.4",
		"[::1]:8080": "::1",
		"5.6.7.8":    "5.6.7.8",
		"":           core.UnknownClient,
		"   ":        core.UnknownClient,
	}
	for addr, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		assert.Equal(t, want, ClientID(req), "addr %q", addr)
	}
}

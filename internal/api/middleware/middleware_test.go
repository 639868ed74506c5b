package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// Keys are limited independently.
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(20 * time.Minute)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.Cleanup(10*time.Minute))
	assert.Equal(t, 1, rl.Len())

	now = now.Add(time.Hour)
	assert.Equal(t, 1, rl.Cleanup(10*time.Minute))
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Middleware(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// A different real IP gets its own bucket.
	req.Header.Set("X-Real-IP", "10.0.0.2")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentity(t *testing.T) {
	var seen string
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"header set", "user-42", "user-42"},
		{"trimmed", "  user-42 ", "user-42"},
		{"missing", "", domain.GuestUserID},
		{"blank", "   ", domain.GuestUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestIdentity_TooLong(t *testing.T) {
	called := false
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeader, strings.Repeat("x", maxUserIDLength+1))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestUserIDFromContext_Default(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, domain.GuestUserID, UserIDFromContext(req.Context()))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("z", 65))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestMetricsAndLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	h := Metrics(m)(Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})))

	for _, path := range []string{"/", "/", "/missing"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.NotZero(t, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "4xx")))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "5xx", statusClass(503))
}

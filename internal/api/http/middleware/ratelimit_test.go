package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/kychat-server/internal/testutil"
)

func TestNewRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewRateLimiter("auth", 0, 10, testutil.MakeNoopLogger()))
	assert.Nil(t, NewRateLimiter("auth", 1, 0, testutil.MakeNoopLogger()))

	var l *RateLimiter
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		l.Handle(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_Handle(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter("auth", 1, 2, testutil.MakeNoopLogger())
	require.NotNil(t, l)
	now := time.Now()
	l.now = func() time.Time { return now }

	h := l.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:2222").Code)

	rejected := do("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.Equal(t, "1", rejected.Header().Get("Retry-After"))
	assert.Contains(t, rejected.Body.String(), "too many requests")

	assert.Equal(t, http.StatusOK, do("10.0.0.2:1111").Code, "other ip has its own bucket")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:4444").Code, "bucket refills")
}

func TestRateLimiter_EvictsIdle(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter("auth", 1, 1, testutil.MakeNoopLogger())
	now := time.Now()
	l.now = func() time.Time { return now }

	l.allow("stale")
	now = now.Add(2 * limiterIdleTTL)
	for i := 0; i < 511; i++ {
		l.allow("fresh")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.byKey, "stale")
	assert.Contains(t, l.byKey, "fresh")
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remote string
		want   string
	}{
		{remote: "192.168.1.5:4000", want: "192.168.1.5"},
		{remote: "[::1]:4000", want: "::1"},
		{remote: "203.0.113.9", want: "203.0.113.9"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		assert.Equal(t, tt.want, clientIP(req))
	}
}

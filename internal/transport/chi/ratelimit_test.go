package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/metrics"
)

type mockLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allow, m.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveRateLimited(l Limiter, limit int, path, remoteAddr string) *httptest.ResponseRecorder {
	handler := RateLimitMiddleware(l, limit, time.Minute, zap.NewNop())(okHandler())
	req := httptest.NewRequest("GET", path, http.NoBody)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitMiddleware_NilLimiter_PassThrough(t *testing.T) {
	rr := serveRateLimited(nil, 10, "/search?q=x", "")
	if rr.Code != http.StatusOK {
		t.Errorf("nil limiter: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_ZeroLimit_PassThrough(t *testing.T) {
	l := &mockLimiter{allow: false}
	rr := serveRateLimited(l, 0, "/search?q=x", "")
	if rr.Code != http.StatusOK {
		t.Errorf("zero limit: got %d, want %d", rr.Code, http.StatusOK)
	}
	if len(l.keys) != 0 {
		t.Errorf("limiter should not be consulted, got %d calls", len(l.keys))
	}
}

func TestRateLimitMiddleware_Allowed(t *testing.T) {
	l := &mockLimiter{allow: true}
	rr := serveRateLimited(l, 10, "/search?q=x", "203.0.113.7:54321")
	if rr.Code != http.StatusOK {
		t.Errorf("allowed: got %d, want %d", rr.Code, http.StatusOK)
	}
	if len(l.keys) != 1 || l.keys[0] != "203.0.113.7" {
		t.Errorf("limiter keys = %v, want [203.0.113.7]", l.keys)
	}
}

func TestRateLimitMiddleware_Rejected_429(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitRejectedTotal)

	l := &mockLimiter{allow: false}
	rr := serveRateLimited(l, 10, "/search?q=x", "203.0.113.7:54321")

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("rejected: got %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != ErrorCodeRateLimited {
		t.Errorf("error code: got %s, want %s", errResp.Code, ErrorCodeRateLimited)
	}

	if got := testutil.ToFloat64(metrics.RateLimitRejectedTotal) - before; got != 1 {
		t.Errorf("rejected counter delta = %v, want 1", got)
	}
}

func TestRateLimitMiddleware_LimiterError_FailsOpen(t *testing.T) {
	l := &mockLimiter{err: errors.New("connection refused")}
	rr := serveRateLimited(l, 10, "/search?q=x", "")
	if rr.Code != http.StatusOK {
		t.Errorf("limiter error: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_ExemptPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		l := &mockLimiter{allow: false}
		rr := serveRateLimited(l, 1, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s: got %d, want %d", path, rr.Code, http.StatusOK)
		}
		if len(l.keys) != 0 {
			t.Errorf("%s: limiter should not be consulted", path)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", http.NoBody)
		req.RemoteAddr = tt.remote
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

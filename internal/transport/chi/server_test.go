package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/domain"
	"github.com/kailas-cloud/khoj/internal/domain/search/request"
	"github.com/kailas-cloud/khoj/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/khoj/internal/usecase/health"
)

type mockSearcher struct {
	resp   result.Response
	err    error
	tokens int
	got    request.Query
	called bool
}

func (m *mockSearcher) Search(ctx context.Context, q request.Query) (result.Response, error) {
	m.called = true
	m.got = q
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	return m.resp, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report {
	return m.report
}

func newTestRouter(s Searcher, h HealthChecker) http.Handler {
	r := chi.NewRouter()
	NewServer(s, h, zap.NewNop()).Register(r)
	return r
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return errResp
}

func TestSearch_OK(t *testing.T) {
	s := &mockSearcher{
		resp: result.Response{
			Results: []result.Result{
				{ID: "a", Title: "Nepal", URL: "https://example.com/a", Snippet: "<mark>नेपाल</mark>", Score: 0.8},
			},
			ContinueCursor: "",
			IsDone:         true,
		},
		tokens: 4,
	}
	rr := doGet(t, newTestRouter(s, &mockHealth{}), "/search?q=%E0%A4%A8%E0%A5%87%E0%A4%AA%E0%A4%BE%E0%A4%B2&limit=5&cursor=10&lang=ne")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "4" {
		t.Errorf("X-Embedding-Tokens = %q, want 4", got)
	}
	if s.got.Q() != "नेपाल" || s.got.Limit() != 5 || s.got.Offset() != 10 || s.got.Language() != "ne" {
		t.Errorf("unexpected query: q=%q limit=%d offset=%d lang=%q",
			s.got.Q(), s.got.Limit(), s.got.Offset(), s.got.Language())
	}

	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"results", "continueCursor", "isDone"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
	if body["isDone"] != true {
		t.Errorf("isDone = %v, want true", body["isDone"])
	}
}

func TestSearch_NoEmbeddingHeaderOnCacheHit(t *testing.T) {
	s := &mockSearcher{resp: result.Response{Results: []result.Result{}, IsDone: true}}
	rr := doGet(t, newTestRouter(s, &mockHealth{}), "/search?q=x")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "" {
		t.Errorf("X-Embedding-Tokens = %q, want empty", got)
	}
}

func TestSearch_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   ErrorCode
	}{
		{"missing q", "/search", ErrorCodeValidationFailed},
		{"blank q", "/search?q=%20%20", ErrorCodeValidationFailed},
		{"bad cursor", "/search?q=x&cursor=abc", ErrorCodeValidationFailed},
		{"negative cursor", "/search?q=x&cursor=-1", ErrorCodeValidationFailed},
		{"bad limit", "/search?q=x&limit=ten", ErrorCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockSearcher{}
			rr := doGet(t, newTestRouter(s, &mockHealth{}), tt.target)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if got := decodeError(t, rr).Code; got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
			if s.called {
				t.Error("searcher must not be called on invalid input")
			}
		})
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
		msg    string
	}{
		{
			"embedding provider",
			fmt.Errorf("embed query: %w", domain.ErrEmbeddingProviderError),
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError, "embedding provider error",
		},
		{
			"store unavailable",
			fmt.Errorf("search documents: %w: dial tcp", domain.ErrStoreUnavailable),
			http.StatusBadGateway, ErrorCodeStoreUnavailable, "document store unavailable",
		},
		{
			"deadline",
			fmt.Errorf("search documents: %w", context.DeadlineExceeded),
			http.StatusGatewayTimeout, ErrorCodeTimeout, "request timed out",
		},
		{
			"deadline wins over store",
			fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, context.DeadlineExceeded),
			http.StatusGatewayTimeout, ErrorCodeTimeout, "request timed out",
		},
		{
			"rate limited",
			domain.ErrRateLimited,
			http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limited",
		},
		{
			"unknown",
			errors.New("secret: password=hunter2"),
			http.StatusInternalServerError, ErrorCodeInternalError, "internal error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doGet(t, newTestRouter(&mockSearcher{err: tt.err}, &mockHealth{}), "/search?q=x")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			errResp := decodeError(t, rr)
			if errResp.Code != tt.code {
				t.Errorf("code = %s, want %s", errResp.Code, tt.code)
			}
			if errResp.Message != tt.msg {
				t.Errorf("message = %q, want %q", errResp.Message, tt.msg)
			}
		})
	}
}

func TestSearch_Pagination(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"default", "/search?q=x", 20},
		{"explicit", "/search?q=x&limit=7", 7},
		{"clamped", "/search?q=x&limit=500", 30},
		{"zero falls back", "/search?q=x&limit=0", request.DefaultLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockSearcher{resp: result.Response{Results: []result.Result{}, IsDone: true}}
			r := chi.NewRouter()
			NewServer(s, &mockHealth{}, zap.NewNop()).WithPagination(20, 30).Register(r)

			rr := doGet(t, r, tt.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if s.got.Limit() != tt.want {
				t.Errorf("limit = %d, want %d", s.got.Limit(), tt.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		status int
	}{
		{
			"healthy",
			healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{
				healthuc.ComponentDatabase: healthuc.CheckOK,
				healthuc.ComponentCache:    healthuc.CheckOK,
			}},
			http.StatusOK,
		},
		{
			"degraded",
			healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{
				healthuc.ComponentDatabase: healthuc.CheckOK,
				healthuc.ComponentCache:    healthuc.CheckError,
			}},
			http.StatusServiceUnavailable,
		},
		{
			"unhealthy",
			healthuc.Report{Status: healthuc.Unhealthy, Checks: map[string]healthuc.CheckResult{
				healthuc.ComponentDatabase: healthuc.CheckError,
			}},
			http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doGet(t, newTestRouter(&mockSearcher{}, &mockHealth{report: tt.report}), "/health")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.report.Status) {
				t.Errorf("status = %q, want %q", resp.Status, tt.report.Status)
			}
			if len(resp.Checks) != len(tt.report.Checks) {
				t.Errorf("checks = %v, want %v", resp.Checks, tt.report.Checks)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := doGet(t, newTestRouter(&mockSearcher{}, &mockHealth{}), "/metrics")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestNotFound_JSON(t *testing.T) {
	rr := doGet(t, newTestRouter(&mockSearcher{}, &mockHealth{}), "/collections")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if got := decodeError(t, rr).Code; got != ErrorCodeNotFound {
		t.Errorf("code = %s, want %s", got, ErrorCodeNotFound)
	}
}

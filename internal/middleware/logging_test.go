package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggingMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))

	req := httptest.NewRequest("GET", "/api/tenants/abc/usage", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.195")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := buf.String()
	for _, want := range []string{"GET", "/api/tenants/abc/usage", "status=402", "203.0.113.195", "level=WARN", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q, got: %s", want, out)
		}
	}
}

func TestRequestLoggingMiddleware_ServerErrorLogsAtError(t *testing.T) {
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.WriteHeader(http.StatusOK) // superfluous, must not change the logged status
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/plans", nil))

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status=503") {
		t.Errorf("expected error-level 503 log, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_RequestID(t *testing.T) {
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	var seen string
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	// Generated when absent.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/admin/usage-reports", nil))
	if seen == "" {
		t.Fatal("expected generated request id in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}

	// Propagated when present.
	req := httptest.NewRequest("GET", "/admin/usage-reports", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "req-123" {
		t.Errorf("request id = %q, want req-123", seen)
	}
}

func TestRequestLoggingMiddleware_SkipsHealthAndMetrics(t *testing.T) {
	for _, path := range []string{"/healthz", "/metrics"} {
		var buf bytes.Buffer
		mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))

		if buf.Len() != 0 {
			t.Errorf("%s should not be logged, got: %s", path, buf.String())
		}
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		rawQuery string
		want     string
	}{
		{"no query", "/api/plans", "", "/api/plans"},
		{"safe params", "/admin/usage-reports", "year=2026", "/admin/usage-reports?year=2026"},
		{"token redacted", "/api/plans", "token=abc&x=1", "/api/plans?token=[REDACTED]&x=1"},
		{"case insensitive", "/api/plans", "API_KEY=abc", "/api/plans?API_KEY=[REDACTED]"},
		{"malformed dropped", "/api/plans", "flag", "/api/plans"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizePath(tt.path, tt.rawQuery); got != tt.want {
				t.Errorf("sanitizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"trial-funnel/services/auth"
)

type stubValidator struct {
	op  *auth.Operator
	err error
}

func (s stubValidator) ValidateToken(string) (*auth.Operator, error) {
	return s.op, s.err
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validator  stubValidator
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", stubValidator{}, http.StatusUnauthorized, "Missing authorization header"},
		{"wrong scheme", "Basic abc", stubValidator{}, http.StatusUnauthorized, "Invalid authorization header format"},
		{"expired", "Bearer t", stubValidator{err: auth.ErrTokenExpired}, http.StatusUnauthorized, "Token expired"},
		{"invalid", "Bearer t", stubValidator{err: auth.ErrInvalidToken}, http.StatusUnauthorized, "Invalid token"},
		{"other error", "Bearer t", stubValidator{err: errors.New("boom")}, http.StatusUnauthorized, "Authentication failed"},
		{"ok", "Bearer t", stubValidator{op: &auth.Operator{Subject: "ops", Role: "operator"}}, http.StatusOK, "ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				op := GetOperatorFromContext(r.Context())
				if op == nil {
					t.Fatal("operator missing from context")
				}
				w.Write([]byte(op.Subject))
			})
			h := AuthMiddleware(tt.validator, zap.NewNop())(next)

			req := httptest.NewRequest(http.MethodGet, "/api/internal/orphans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id = %q, header = %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Errorf("propagated id = %q", seen)
	}
}

func TestLoggingMiddlewareCapturesStatus(t *testing.T) {
	h := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGetConfigForEndpoint(t *testing.T) {
	if got := getConfigForEndpoint("/api/create-checkout-session"); got.Requests != 10 {
		t.Errorf("checkout limit = %d", got.Requests)
	}
	if got := getConfigForEndpoint("/api/internal/orphans"); got.Requests != 200 {
		t.Errorf("internal limit = %d", got.Requests)
	}
	if got := getConfigForEndpoint("/quiz/face-yoga-en"); got.Requests != defaultConfigs["default"].Requests {
		t.Errorf("default limit = %d", got.Requests)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if ip := getClientIP(req); ip != "10.0.0.1" {
		t.Errorf("remote addr ip = %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := getClientIP(req); ip != "203.0.113.7" {
		t.Errorf("forwarded ip = %q", ip)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()

	called := false
	h := NewRateLimiter(client, zap.NewNop()).RateLimitMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", nil))
	if !called {
		t.Error("request should pass through when Redis is unavailable")
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("API responses must not be cached")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Cache-Control") != "" {
		t.Error("pages keep default caching")
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tunevault/internal/auth"
	"tunevault/internal/logging"
)

const secret = "0123456789abcdef-test"

func TestRequestLoggingAssignsRequestID(t *testing.T) {
	var seen string
	handler := RequestLogging()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/playlists", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("request id mismatch: ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("incoming request id not kept, got %q", seen)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	handler := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed origin", []string{"http://a.example", "http://b.example"}, "http://B.example", http.MethodGet, "http://B.example", http.StatusOK},
		{"unknown origin", []string{"http://a.example"}, "http://evil.example", http.MethodGet, "", http.StatusOK},
		{"wildcard", []string{"*"}, "http://any.example", http.MethodGet, "*", http.StatusOK},
		{"preflight", []string{"http://a.example"}, "http://a.example", http.MethodOptions, "http://a.example", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/playlists", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			CORS(tt.allowed)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Fatalf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	verifier := auth.NewVerifier(secret)
	adminToken, err := verifier.Sign(auth.Admin(7), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	otherToken, err := auth.NewVerifier("another-secret-entirely").Sign(auth.User(7), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var got auth.Principal
	handler := Authenticate(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		want       auth.Principal
	}{
		{"no header", "", http.StatusOK, auth.Anonymous()},
		{"admin token", "Bearer " + adminToken, http.StatusOK, auth.Admin(7)},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, auth.Principal{}},
		{"bad signature", "Bearer " + otherToken, http.StatusUnauthorized, auth.Principal{}},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, auth.Principal{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = auth.Principal{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got != tt.want {
				t.Fatalf("principal = %+v, want %+v", got, tt.want)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("Content-Type") != "application/json" {
				t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

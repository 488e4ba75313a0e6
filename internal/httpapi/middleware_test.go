package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"mentorgraph.org/internal/obs"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimitExceeded(t *testing.T) {
	handler := RequestID(RateLimit(okHandler, NewLocalLimiter(1, 1)))

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req.Clone(context.Background()))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first call 200, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req.Clone(context.Background()))
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr2.Code)
	}
	if rr2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var body map[string]any
	if err := json.Unmarshal(rr2.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rate limit body: %v", err)
	}
	if body["error"] != "rate limit exceeded" {
		t.Fatalf("unexpected error message %v", body["error"])
	}
	if body["request_id"] == nil || body["request_id"] == "" {
		t.Fatalf("expected request_id in body")
	}

	// Another client has its own bucket.
	other := req.Clone(context.Background())
	other.RemoteAddr = "10.0.0.2:1234"
	rr3 := httptest.NewRecorder()
	handler.ServeHTTP(rr3, other)
	if rr3.Code != http.StatusOK {
		t.Fatalf("expected other client 200, got %d", rr3.Code)
	}
}

func TestRedisLimiterSharedWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisLimiter(client, 2, time.Minute)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, _, err := limiter.Allow(ctx, "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("call %d: expected allowed, got ok=%v err=%v", i, ok, err)
		}
	}
	ok, retry, err := limiter.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected third call to be rejected")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry hint %s", retry)
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _, _ := limiter.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatalf("expected window to reset")
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	handler := RateLimit(okHandler, NewRedisLimiter(client, 1, time.Minute))
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/graphql", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected fail-open 200, got %d", rr.Code)
		}
	}
}

func TestLoggingEmitsStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	obs.SetOutput(&buf)
	defer obs.SetOutput(nil)

	handler := RequestID(Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/log-test", nil)
	req.Header.Set("User-Agent", "middleware-test")
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("expected inbound request id to be echoed")
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v (%q)", err, buf.String())
	}
	for _, key := range []string{"ts", "level", "msg", "request_id", "method", "path", "status", "duration_ms"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected key %q in log entry", key)
		}
	}
	if entry["msg"] != "request_complete" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected status: %v", entry["status"])
	}
	if entry["request_id"] != "req-42" {
		t.Fatalf("unexpected request_id: %v", entry["request_id"])
	}
}

func TestRecoverReturns500(t *testing.T) {
	obs.SetOutput(&bytes.Buffer{})
	defer obs.SetOutput(nil)

	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/graphql", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal error") {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestCORSPreflightWithCredentials(t *testing.T) {
	handler := CORS(okHandler, []string{"https://app.mentorgraph.org"})

	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "https://app.mentorgraph.org")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://app.mentorgraph.org" {
		t.Fatalf("expected origin echoed")
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials allowed")
	}

	req = httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow-origin for foreign origin")
	}
}

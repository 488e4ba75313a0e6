package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rr.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rr.Code, body
}

func TestHealthAndInfo(t *testing.T) {
	h := New(Options{Version: "1.2.3"}).Handler()

	code, body := get(t, h, "/healthz")
	if code != http.StatusOK || body["status"] != "ok" || body["version"] != "1.2.3" {
		t.Fatalf("unexpected healthz: %d %v", code, body)
	}
	code, body = get(t, h, "/v1/info")
	if code != http.StatusOK || body["name"] != "mentorgraph-api" {
		t.Fatalf("unexpected info: %d %v", code, body)
	}
	code, _ = get(t, h, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", code)
	}
}

func TestReadyReflectsPinger(t *testing.T) {
	var fail error
	h := New(Options{Ready: pingFunc(func(context.Context) error { return fail })}).Handler()

	if code, body := get(t, h, "/readyz"); code != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("unexpected ready: %d %v", code, body)
	}
	fail = errors.New("mongo down")
	code, body := get(t, h, "/readyz")
	if code != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Fatalf("unexpected not ready: %d %v", code, body)
	}
}

func TestUnknownPathIsJSON404(t *testing.T) {
	h := New(Options{}).Handler()
	code, body := get(t, h, "/nope")
	if code != http.StatusNotFound || body["error"] != "not found" {
		t.Fatalf("unexpected 404: %d %v", code, body)
	}
	if body["request_id"] == nil {
		t.Fatalf("expected request_id on error body")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}
}

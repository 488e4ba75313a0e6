package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/audit"
	"mentorgraph.org/internal/auth"
)

type stubAudit struct {
	events []audit.Event
	err    error
	limit  int
}

func (s *stubAudit) Recent(_ context.Context, limit int) ([]audit.Event, error) {
	s.limit = limit
	return s.events, s.err
}

func TestAuditEventsRequiresAdmin(t *testing.T) {
	admin := &auth.User{ID: primitive.NewObjectID(), Role: auth.RoleAdmin}
	user := &auth.User{ID: primitive.NewObjectID(), Role: auth.RoleUser}
	reader := &stubAudit{events: []audit.Event{{ID: "a1", OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Name: "auth.logout"}}}
	h := New(Options{
		Auth:  &stubAuth{tokens: map[string]*auth.User{"admin": admin, "user": user}},
		Audit: reader,
	}).Handler()

	call := func(token, query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/audit"+query, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := call("", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", rr.Code)
	}
	if rr := call("user", ""); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for plain user, got %d", rr.Code)
	}
	if rr := call("admin", "?limit=x"); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rr.Code)
	}
	rr := call("admin", "?limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if reader.limit != 5 {
		t.Fatalf("expected limit 5 passed through, got %d", reader.limit)
	}
	want := `{"events":[{"id":"a1","occurred_at":"2026-03-01T00:00:00Z","event":"auth.logout"}]}` + "\n"
	if rr.Body.String() != want {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	reader.err = errors.New("connection refused")
	if rr := call("admin", ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on reader failure, got %d", rr.Code)
	}
}

func TestAuditRouteAbsentWithoutReader(t *testing.T) {
	code, _ := get(t, New(Options{}).Handler(), "/v1/audit")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestReadyAllChecksEveryMember(t *testing.T) {
	down := errors.New("redis down")
	ready := ReadyAll{pingFunc(func(context.Context) error { return nil }), nil, pingFunc(func(context.Context) error { return down })}
	if err := ready.Ping(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected redis failure, got %v", err)
	}
	if err := (ReadyAll{}).Ping(context.Background()); err != nil {
		t.Fatalf("empty set is ready: %v", err)
	}
}

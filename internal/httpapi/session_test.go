package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mentorgraph.org/internal/auth"
)

func TestSessionRenewTracksRotatedToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "t0"})
	rr := httptest.NewRecorder()
	s := NewSession(rr, req, CookieConfig{})

	if got := s.RefreshToken(); got != "t0" {
		t.Fatalf("expected request cookie t0, got %q", got)
	}
	if _, ok := s.Renewed(); ok {
		t.Fatalf("fresh session must not report a renewal")
	}

	http.SetCookie(rr, &http.Cookie{Name: "theme", Value: "dark"})
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Renew(auth.Session{RefreshToken: "t1", RefreshExpiresAt: expires, Access: auth.AccessToken{Token: "a1"}})

	if got := s.RefreshToken(); got != "t1" {
		t.Fatalf("expected rotated token t1, got %q", got)
	}
	sess, ok := s.Renewed()
	if !ok || sess.Access.Token != "a1" {
		t.Fatalf("expected renewed session, got %+v %v", sess, ok)
	}
	if rr.Header().Get("X-Access-Token") != "a1" {
		t.Fatalf("expected access token header")
	}

	s.ClearRefreshToken(expires)
	if got := s.RefreshToken(); got != "" {
		t.Fatalf("expected cleared token, got %q", got)
	}
	var refresh []*http.Cookie
	others := 0
	for _, c := range rr.Result().Cookies() {
		if c.Name == "refreshToken" {
			refresh = append(refresh, c)
		} else {
			others++
		}
	}
	if len(refresh) != 1 || refresh[0].Value != "" || refresh[0].MaxAge >= 0 {
		t.Fatalf("expected a single clearing refresh cookie, got %+v", refresh)
	}
	if others != 1 {
		t.Fatalf("unrelated cookies must survive, got %d", others)
	}
}

func TestNilSessionIsSafe(t *testing.T) {
	var s *Session
	s.SetRefreshToken("x", time.Now())
	s.ClearRefreshToken(time.Now())
	s.Renew(auth.Session{})
	if s.RefreshToken() != "" {
		t.Fatalf("nil session has no token")
	}
	if _, ok := s.Renewed(); ok {
		t.Fatalf("nil session has no renewal")
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
)

type stubAuth struct {
	tokens    map[string]*auth.User
	expired   map[string]bool
	refreshed map[string]auth.Session
	secret    string
}

func (s *stubAuth) Authenticate(_ context.Context, token string) (*auth.User, error) {
	if s.expired[token] {
		return nil, auth.ErrTokenExpired
	}
	if u, ok := s.tokens[token]; ok {
		return u, nil
	}
	return nil, auth.ErrInvalidToken
}

func (s *stubAuth) Refresh(_ context.Context, value string) (auth.Session, error) {
	sess, ok := s.refreshed[value]
	if !ok {
		return auth.Session{}, auth.ErrInvalidToken
	}
	delete(s.refreshed, value)
	return sess, nil
}

func (s *stubAuth) VerifyServiceSecret(presented string) bool {
	return s.secret != "" && presented == s.secret
}

type stubOrgs map[string]*auth.Organization

func (s stubOrgs) Resolve(_ context.Context, sub string) (*auth.Organization, error) {
	return s[sub], nil
}

type seen struct {
	Actor   string `json:"actor"`
	Trusted bool   `json:"trusted"`
	Org     string `json:"org"`
}

// echoContext echoes what the middleware chain put into the request context.
var echoContext = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	var out seen
	if u := auth.ActorFromContext(r.Context()); u != nil {
		out.Actor = u.ID.Hex()
	}
	out.Trusted = auth.IsTrustedService(r.Context())
	if o := auth.OrganizationFromContext(r.Context()); o != nil {
		out.Org = o.Subdomain
	}
	writeJSON(w, http.StatusOK, out)
})

func newAuthTestAPI(a *stubAuth, orgs stubOrgs) http.Handler {
	return New(Options{
		Version:    "test",
		GraphQL:    echoContext,
		Auth:       a,
		Orgs:       orgs,
		Cookies:    CookieConfig{Domain: "mentorgraph.test", Secure: true},
		RateBurst:  100,
		RatePerSec: 100,
	}).Handler()
}

func doGraphQL(t *testing.T, h http.Handler, mutate func(*http.Request)) (*httptest.ResponseRecorder, seen) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`))
	req.RemoteAddr = "10.1.1.1:5555"
	if mutate != nil {
		mutate(req)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var out seen
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	return rr, out
}

func TestAuthValidTokenSetsActor(t *testing.T) {
	user := &auth.User{ID: primitive.NewObjectID(), Role: auth.RoleUser}
	h := newAuthTestAPI(&stubAuth{tokens: map[string]*auth.User{"good": user}}, nil)

	_, got := doGraphQL(t, h, func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") })
	if got.Actor != user.ID.Hex() {
		t.Fatalf("expected actor %s, got %+v", user.ID.Hex(), got)
	}
}

func TestAuthMissingOrInvalidIsAnonymous(t *testing.T) {
	h := newAuthTestAPI(&stubAuth{}, nil)
	for name, header := range map[string]string{
		"none":    "",
		"invalid": "bearer nope",
		"scheme":  "Basic abc",
		"empty":   "bearer   ",
	} {
		_, got := doGraphQL(t, h, func(r *http.Request) {
			if header != "" {
				r.Header.Set("Authorization", header)
			}
		})
		if got.Actor != "" || got.Trusted {
			t.Fatalf("%s: expected anonymous, got %+v", name, got)
		}
	}
}

func TestAuthExpiredTokenRefreshesFromCookie(t *testing.T) {
	user := &auth.User{ID: primitive.NewObjectID(), Role: auth.RoleUser}
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubAuth{
		expired: map[string]bool{"stale": true},
		refreshed: map[string]auth.Session{"r0": {
			User:             user,
			Access:           auth.AccessToken{Token: "fresh-access"},
			RefreshToken:     "r1",
			RefreshExpiresAt: expires,
		}},
	}
	h := newAuthTestAPI(stub, nil)

	rr, got := doGraphQL(t, h, func(r *http.Request) {
		r.Header.Set("Authorization", "bearer stale")
		r.AddCookie(&http.Cookie{Name: "refreshToken", Value: "r0"})
	})
	if got.Actor != user.ID.Hex() {
		t.Fatalf("expected refreshed actor, got %+v", got)
	}
	if rr.Header().Get("X-Access-Token") != "fresh-access" {
		t.Fatalf("expected X-Access-Token header, got %q", rr.Header().Get("X-Access-Token"))
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "refreshToken" || c.Value != "r1" || !c.HttpOnly || !c.Secure || c.Domain != "mentorgraph.test" {
		t.Fatalf("unexpected cookie %+v", c)
	}
	if !c.Expires.Equal(expires) {
		t.Fatalf("expected cookie expiry %s, got %s", expires, c.Expires)
	}

	// The same cookie value cannot be redeemed twice.
	rr, got = doGraphQL(t, h, func(r *http.Request) {
		r.Header.Set("Authorization", "bearer stale")
		r.AddCookie(&http.Cookie{Name: "refreshToken", Value: "r0"})
	})
	if got.Actor != "" {
		t.Fatalf("expected anonymous after failed refresh, got %+v", got)
	}
	if len(rr.Result().Cookies()) != 0 || rr.Header().Get("X-Access-Token") != "" {
		t.Fatalf("failed refresh must not set credentials")
	}
}

func TestAuthExpiredWithoutCookieIsAnonymous(t *testing.T) {
	h := newAuthTestAPI(&stubAuth{expired: map[string]bool{"stale": true}}, nil)
	_, got := doGraphQL(t, h, func(r *http.Request) { r.Header.Set("Authorization", "bearer stale") })
	if got.Actor != "" {
		t.Fatalf("expected anonymous, got %+v", got)
	}
}

func TestAuthServiceSecret(t *testing.T) {
	h := newAuthTestAPI(&stubAuth{secret: "shared-api-secret"}, nil)

	_, got := doGraphQL(t, h, func(r *http.Request) {
		r.Header.Set("mentor-graphql-req", "true")
		r.Header.Set("Authorization", "bearer shared-api-secret")
	})
	if !got.Trusted || got.Actor != "" {
		t.Fatalf("expected trusted service, got %+v", got)
	}

	_, got = doGraphQL(t, h, func(r *http.Request) {
		r.Header.Set("mentor-graphql-req", "true")
		r.Header.Set("Authorization", "bearer wrong")
	})
	if got.Trusted {
		t.Fatalf("wrong secret must not be trusted")
	}
}

func TestOrganizationHeader(t *testing.T) {
	orgs := stubOrgs{"usc": {ID: primitive.NewObjectID(), Subdomain: "usc"}}
	h := newAuthTestAPI(&stubAuth{}, orgs)

	_, got := doGraphQL(t, h, func(r *http.Request) { r.Header.Set("X-Organization", "usc") })
	if got.Org != "usc" {
		t.Fatalf("expected org usc, got %+v", got)
	}
	_, got = doGraphQL(t, h, func(r *http.Request) { r.Header.Set("X-Organization", "unknown") })
	if got.Org != "" {
		t.Fatalf("unknown subdomain must not select an org, got %+v", got)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc":  {"abc", true},
		"bearer  abc": {"abc", true},
		"BEARER abc":  {"abc", true},
		"abc":         {"", false},
		"Bearer":      {"", false},
		"":            {"", false},
	}
	for in, want := range cases {
		token, ok := extractBearerToken(in)
		if token != want.token || ok != want.ok {
			t.Fatalf("extractBearerToken(%q) = %q, %v; want %q, %v", in, token, ok, want.token, want.ok)
		}
	}
}

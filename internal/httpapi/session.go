package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mentorgraph.org/internal/auth"
)

const (
	refreshCookieName = "refreshToken"
	accessTokenHeader = "X-Access-Token"
)

// CookieConfig controls the refresh-token cookie attributes.
type CookieConfig struct {
	Domain string
	Secure bool
}

// Session gives request handlers access to the refresh-token cookie and the access-token
// response header. Changes must be made before the response body is written.
type Session struct {
	w   http.ResponseWriter
	r   *http.Request
	cfg CookieConfig

	// current is the refresh token as of the last cookie write in this request.
	current *string
	renewed *auth.Session
}

type sessionContextKey struct{}

// SessionFromContext returns the Session for the request, or nil outside the HTTP layer.
func SessionFromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}

// ContextWithSession attaches s to ctx.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// NewSession binds a Session to one request/response pair.
func NewSession(w http.ResponseWriter, r *http.Request, cfg CookieConfig) *Session {
	return &Session{w: w, r: r, cfg: cfg}
}

// RefreshToken returns the refresh token the client holds: the value set earlier in this
// request if any, otherwise the cookie sent by the client.
func (s *Session) RefreshToken() string {
	if s == nil {
		return ""
	}
	if s.current != nil {
		return *s.current
	}
	c, err := s.r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetRefreshToken sets the refresh-token cookie to expire with the stored record. It
// replaces any refresh-token cookie already set on this response.
func (s *Session) SetRefreshToken(value string, expires time.Time) {
	if s == nil {
		return
	}
	s.setCookie(s.cookie(value, expires))
}

// ClearRefreshToken expires the refresh-token cookie at now.
func (s *Session) ClearRefreshToken(now time.Time) {
	if s == nil {
		return
	}
	c := s.cookie("", now)
	c.MaxAge = -1
	s.setCookie(c)
}

// Renew hands a session rotated by the middleware to the client and remembers it for
// the rest of the request.
func (s *Session) Renew(sess auth.Session) {
	if s == nil {
		return
	}
	s.renewed = &sess
	s.SetRefreshToken(sess.RefreshToken, sess.RefreshExpiresAt)
	s.SetAccessToken(sess.Access.Token)
}

// Renewed returns the session rotated earlier in this request, if any.
func (s *Session) Renewed() (auth.Session, bool) {
	if s == nil || s.renewed == nil {
		return auth.Session{}, false
	}
	return *s.renewed, true
}

func (s *Session) setCookie(c *http.Cookie) {
	h := s.w.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, refreshCookieName+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	value := c.Value
	s.current = &value
	http.SetCookie(s.w, c)
}

// SetAccessToken exposes a freshly minted access token to the client.
func (s *Session) SetAccessToken(token string) {
	if s == nil || token == "" {
		return
	}
	s.w.Header().Set(accessTokenHeader, token)
}

func (s *Session) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.cfg.Domain,
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := NewSession(w, r, a.opts.Cookies)
		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), s)))
	})
}

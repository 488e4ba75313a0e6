package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/obs"
)

const (
	authHeader        = "Authorization"
	serviceRequestHdr = "mentor-graphql-req"
	bearer            = "bearer "
)

// Authenticator resolves credentials presented on a request.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.User, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	VerifyServiceSecret(presented string) bool
}

// withAuth attaches the actor or the trusted-service marker. Every failure leaves the
// request anonymous; resolvers decide whether anonymous access is acceptable.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.opts.Auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := a.authenticate(r.Context(), r)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) authenticate(ctx context.Context, r *http.Request) context.Context {
	log := obs.LoggerFromContext(ctx)
	token, ok := extractBearerToken(r.Header.Get(authHeader))

	if r.Header.Get(serviceRequestHdr) != "" {
		if ok && a.opts.Auth.VerifyServiceSecret(token) {
			return auth.ContextWithTrustedService(ctx)
		}
		log.Warn("service request with invalid secret")
		return ctx
	}
	if !ok {
		return ctx
	}

	user, err := a.opts.Auth.Authenticate(ctx, token)
	switch {
	case err == nil:
		return withActor(ctx, user)
	case errors.Is(err, auth.ErrTokenExpired):
		return a.refreshFromCookie(ctx, r)
	case errors.Is(err, auth.ErrInvalidToken):
		log.Debug("invalid access token")
	default:
		log.WithError(err).Warn("authentication failed")
	}
	return ctx
}

// refreshFromCookie rotates the refresh-token cookie when the access token has expired.
func (a *API) refreshFromCookie(ctx context.Context, r *http.Request) context.Context {
	c, err := r.Cookie(refreshCookieName)
	if err != nil || c.Value == "" {
		return ctx
	}
	sess, err := a.opts.Auth.Refresh(ctx, c.Value)
	if err != nil {
		obs.LoggerFromContext(ctx).WithError(err).Info("refresh on expired access token failed")
		return ctx
	}
	SessionFromContext(ctx).Renew(sess)
	return withActor(ctx, sess.User)
}

func withActor(ctx context.Context, user *auth.User) context.Context {
	if user == nil {
		return ctx
	}
	ctx = auth.ContextWithActor(ctx, user)
	return obs.WithUserID(ctx, user.ID.Hex())
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}

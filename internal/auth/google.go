package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GoogleProfile is the identity Google vouches for.
type GoogleProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// GoogleVerifier exchanges a client supplied Google credential for a profile.
type GoogleVerifier interface {
	Profile(ctx context.Context, credential string) (*GoogleProfile, error)
}

// OIDCGoogleVerifier resolves Google credentials through OpenID Connect discovery.
// OAuth access tokens are checked against the userinfo endpoint; ID tokens are verified
// locally against the provider keys and the configured client id.
type OIDCGoogleVerifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers the provider at issuer (normally https://accounts.google.com).
func NewGoogleVerifier(ctx context.Context, issuer, clientID string) (*OIDCGoogleVerifier, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("google client id is required")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &OIDCGoogleVerifier{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Profile implements GoogleVerifier. Any rejection by Google maps to ErrUnauthenticated.
func (g *OIDCGoogleVerifier) Profile(ctx context.Context, credential string) (*GoogleProfile, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, fmt.Errorf("%w: google credential is required", ErrInvalidInput)
	}
	if strings.Count(credential, ".") == 2 {
		return g.fromIDToken(ctx, credential)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"})
	info, err := g.provider.UserInfo(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: google userinfo: %v", ErrUnauthenticated, err)
	}
	var claims googleClaims
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: google userinfo claims: %v", ErrUnauthenticated, err)
	}
	return &GoogleProfile{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          claims.Name,
	}, nil
}

func (g *OIDCGoogleVerifier) fromIDToken(ctx context.Context, raw string) (*GoogleProfile, error) {
	tok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: google id token: %v", ErrUnauthenticated, err)
	}
	var claims googleClaims
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: google id token claims: %v", ErrUnauthenticated, err)
	}
	return &GoogleProfile{
		Subject:       tok.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/ids"
)

const (
	defaultIssuer    = "mentorgraph"
	defaultShortTTL  = 15 * time.Minute
	defaultLongTTL   = 90 * 24 * time.Hour
	minSecretLength  = 16
	expirationLayout = time.RFC3339
)

// Claims is the access token payload.
type Claims struct {
	UserID         string   `json:"id"`
	Role           Role     `json:"role"`
	MentorIDs      []string `json:"mentorIds"`
	ExpirationDate string   `json:"expirationDate"`
	jwt.RegisteredClaims
}

// AccessToken is a signed token and the instant it stops verifying.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	shortTTL time.Duration
	longTTL  time.Duration
	now      func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenIssuer overrides the iss claim.
func WithTokenIssuer(iss string) TokenOption {
	return func(t *TokenIssuer) {
		if iss = strings.TrimSpace(iss); iss != "" {
			t.issuer = iss
		}
	}
}

// WithShortTTL sets the lifetime of tokens paired with rotating refresh tokens.
func WithShortTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.shortTTL = ttl
		}
	}
}

// WithLongTTL sets the lifetime of tokens issued by the legacy login flow.
func WithLongTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.longTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source.
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTokenIssuer builds an issuer signing with secret.
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	if len(strings.TrimSpace(secret)) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	t := &TokenIssuer{
		secret:   []byte(secret),
		issuer:   defaultIssuer,
		shortTTL: defaultShortTTL,
		longTTL:  defaultLongTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IssueShort signs a token for the rotating refresh flow.
func (t *TokenIssuer) IssueShort(user *User, mentorIDs []primitive.ObjectID) (AccessToken, error) {
	return t.issue(user, mentorIDs, t.shortTTL)
}

// IssueLong signs a long-lived token for the legacy login flow.
func (t *TokenIssuer) IssueLong(user *User, mentorIDs []primitive.ObjectID) (AccessToken, error) {
	return t.issue(user, mentorIDs, t.longTTL)
}

func (t *TokenIssuer) issue(user *User, mentorIDs []primitive.ObjectID, ttl time.Duration) (AccessToken, error) {
	if user == nil || user.ID.IsZero() {
		return AccessToken{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	now := t.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)
	claims := Claims{
		UserID:         user.ID.Hex(),
		Role:           user.Role,
		MentorIDs:      ids.Hex(mentorIDs),
		ExpirationDate: exp.Format(expirationLayout),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	return AccessToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify checks signature, algorithm, issuer and expiry. A token that is valid except for
// having expired yields ErrTokenExpired; anything else wrong yields ErrInvalidToken.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid || claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserObjectID parses the id claim.
func (c *Claims) UserObjectID() (primitive.ObjectID, error) {
	id, err := ids.Parse(c.UserID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return id, nil
}

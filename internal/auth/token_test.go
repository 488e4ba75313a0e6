package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret-0123456789"

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer(testSecret, WithTokenClock(fixedClock(now)))
	require.NoError(t, err)

	user := newUser(RoleContentManager)
	mentorID := primitive.NewObjectID()
	tok, err := issuer.IssueShort(user, []primitive.ObjectID{mentorID})
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), tok.ExpiresAt)

	claims, err := issuer.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, RoleContentManager, claims.Role)
	assert.Equal(t, []string{mentorID.Hex()}, claims.MentorIDs)
	assert.Equal(t, tok.ExpiresAt.Format(time.RFC3339), claims.ExpirationDate)
	assert.NotEmpty(t, claims.ID, "jti")

	id, err := claims.UserObjectID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestLongTokenLifetime(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer(testSecret, WithTokenClock(fixedClock(now)), WithLongTTL(90*24*time.Hour))
	require.NoError(t, err)

	tok, err := issuer.IssueLong(newUser(RoleUser), nil)
	require.NoError(t, err)
	assert.Equal(t, now.Add(90*24*time.Hour), tok.ExpiresAt)
}

func TestVerifyExpiredIsDistinct(t *testing.T) {
	issuedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer(testSecret, WithTokenClock(fixedClock(issuedAt)))
	require.NoError(t, err)
	tok, err := issuer.IssueShort(newUser(RoleUser), nil)
	require.NoError(t, err)

	later, err := NewTokenIssuer(testSecret, WithTokenClock(fixedClock(issuedAt.Add(16*time.Minute))))
	require.NoError(t, err)
	_, err = later.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsInvalid(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret)
	require.NoError(t, err)
	other, err := NewTokenIssuer("another-secret-9876543210")
	require.NoError(t, err)
	foreignIssuer, err := NewTokenIssuer(testSecret, WithTokenIssuer("someone-else"))
	require.NoError(t, err)

	forged, err := other.IssueShort(newUser(RoleSuperAdmin), nil)
	require.NoError(t, err)
	wrongIss, err := foreignIssuer.IssueShort(newUser(RoleUser), nil)
	require.NoError(t, err)
	good, err := issuer.IssueShort(newUser(RoleUser), nil)
	require.NoError(t, err)
	tampered := good.Token[:len(good.Token)-2] + "xx"

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "x"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":      "",
		"garbage":    "not.a.jwt",
		"forged":     forged.Token,
		"issuer":     wrongIss.Token,
		"tampered":   tampered,
		"alg none":   unsigned,
		"whitespace": strings.Repeat(" ", 3),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Verify(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("short")
	assert.Error(t, err)
}

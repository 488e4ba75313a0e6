package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/audit"
	"mentorgraph.org/internal/obs"
)

const defaultRefreshTTL = 90 * 24 * time.Hour

// Service authenticates users, issues token pairs and applies account administration.
type Service struct {
	store      Store
	tokens     *TokenIssuer
	mentors    MentorDirectory
	google     GoogleVerifier
	apiSecret  []byte
	refreshTTL time.Duration
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithMentorDirectory connects mentor ownership lookups and mentor creation at sign-up.
func WithMentorDirectory(dir MentorDirectory) ServiceOption {
	return func(s *Service) error {
		s.mentors = dir
		return nil
	}
}

// WithGoogleVerifier enables Google sign-in.
func WithGoogleVerifier(v GoogleVerifier) ServiceOption {
	return func(s *Service) error {
		s.google = v
		return nil
	}
}

// WithAPISecret sets the shared secret trusted backend services present.
func WithAPISecret(secret string) ServiceOption {
	return func(s *Service) error {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			return errors.New("auth: api secret must not be empty")
		}
		s.apiSecret = []byte(secret)
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, tokens *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	svc := &Service{
		store:      store,
		tokens:     tokens,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Session is the result of a successful login or refresh.
type Session struct {
	User             *User
	Access           AccessToken
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SignUpInput carries the fields of an email/password registration.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// SignUp creates a USER account with a password and its mentor, then logs it in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	user := &User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.createUser(ctx, user); err != nil {
		obs.AuthEvent("signup", "error")
		return Session{}, err
	}
	obs.AuthEvent("signup", "ok")
	_ = audit.LogEvent(obs.WithUserID(ctx, user.ID.Hex()), "auth.signup", map[string]any{"method": "password"})
	return s.startSession(ctx, user)
}

// LoginWithPassword authenticates email and password.
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil || password == "" {
		obs.AuthEvent("login", "rejected")
		return Session{}, ErrUnauthenticated
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.AuthEvent("login", "rejected")
			return Session{}, ErrUnauthenticated
		}
		return Session{}, err
	}
	if user.IsDisabled {
		obs.AuthEvent("login", "rejected")
		return Session{}, ErrUnauthenticated
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		obs.AuthEvent("login", "rejected")
		return Session{}, err
	}
	obs.AuthEvent("login", "ok")
	_ = audit.LogEvent(obs.WithUserID(ctx, user.ID.Hex()), "auth.login", map[string]any{"method": "password"})
	return s.startSession(ctx, user)
}

// LoginGoogle signs in with a Google credential. The first sign-in creates the user and
// its mentor; an existing password account with the same verified email is linked.
func (s *Service) LoginGoogle(ctx context.Context, credential string) (Session, error) {
	if s.google == nil {
		return Session{}, fmt.Errorf("%w: google sign-in is not configured", ErrUnauthenticated)
	}
	profile, err := s.google.Profile(ctx, credential)
	if err != nil {
		obs.AuthEvent("login_google", "rejected")
		return Session{}, err
	}
	if profile.Subject == "" {
		return Session{}, ErrUnauthenticated
	}
	users := s.store.Users(ctx)
	user, err := users.FindByGoogleID(ctx, profile.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		user, err = s.userForGoogleProfile(ctx, profile)
		if err != nil {
			return Session{}, err
		}
	default:
		return Session{}, err
	}
	if user.IsDisabled {
		obs.AuthEvent("login_google", "rejected")
		return Session{}, ErrUnauthenticated
	}
	obs.AuthEvent("login_google", "ok")
	_ = audit.LogEvent(obs.WithUserID(ctx, user.ID.Hex()), "auth.login", map[string]any{"method": "google"})
	return s.startSession(ctx, user)
}

func (s *Service) userForGoogleProfile(ctx context.Context, p *GoogleProfile) (*User, error) {
	users := s.store.Users(ctx)
	email, _ := normalizeEmail(p.Email)
	if email != "" && p.EmailVerified {
		existing, err := users.FindByEmail(ctx, email)
		if err == nil {
			if err := users.LinkGoogle(ctx, existing.ID, p.Subject); err != nil {
				return nil, err
			}
			existing.GoogleID = p.Subject
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = email
	}
	user := &User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		GoogleID:  p.Subject,
		Role:      RoleUser,
		CreatedAt: s.now().UTC(),
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}
	_ = audit.LogEvent(obs.WithUserID(ctx, user.ID.Hex()), "auth.signup", map[string]any{"method": "google"})
	return user, nil
}

func (s *Service) createUser(ctx context.Context, user *User) error {
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return err
	}
	if s.mentors != nil {
		if err := s.mentors.CreateMentorForUser(ctx, user); err != nil {
			return fmt.Errorf("create mentor for user %s: %w", user.ID.Hex(), err)
		}
	}
	return nil
}

// LoginLegacy exchanges a still valid access token for a long-lived one. It does not
// issue refresh tokens.
func (s *Service) LoginLegacy(ctx context.Context, accessToken string) (*User, AccessToken, error) {
	user, err := s.Authenticate(ctx, accessToken)
	if err != nil {
		obs.AuthEvent("login_legacy", "rejected")
		return nil, AccessToken{}, ErrUnauthenticated
	}
	mentorIDs, err := s.mentorIDs(ctx, user.ID)
	if err != nil {
		return nil, AccessToken{}, err
	}
	tok, err := s.tokens.IssueLong(user, mentorIDs)
	if err != nil {
		return nil, AccessToken{}, err
	}
	obs.AuthEvent("login_legacy", "ok")
	return user, tok, nil
}

// Authenticate verifies an access token and loads its user. Expiry is reported as
// ErrTokenExpired so callers can attempt a refresh; a missing or disabled user is
// ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserObjectID()
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users(ctx).Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.IsDisabled {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// VerifyServiceSecret compares a presented bearer value with the API secret in constant time.
func (s *Service) VerifyServiceSecret(presented string) bool {
	if len(s.apiSecret) == 0 || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), s.apiSecret) == 1
}

func (s *Service) startSession(ctx context.Context, user *User) (Session, error) {
	now := s.now().UTC()
	if err := s.store.Users(ctx).TouchLogin(ctx, user.ID, now); err != nil {
		obs.LoggerFromContext(ctx).WithError(err).Warn("record last login failed")
	}
	mentorIDs, err := s.mentorIDs(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	access, err := s.tokens.IssueShort(user, mentorIDs)
	if err != nil {
		return Session{}, err
	}
	value, rec, err := s.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Access: access, RefreshToken: value, RefreshExpiresAt: rec.Expires}, nil
}

func (s *Service) mentorIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	if s.mentors == nil {
		return nil, nil
	}
	return s.mentors.MentorIDsForUser(ctx, userID)
}

// User returns a user by id. Users may read themselves; admins may read anyone.
func (s *Service) User(ctx context.Context, actor *User, id primitive.ObjectID) (*User, error) {
	if !active(actor) {
		return nil, ErrUnauthenticated
	}
	if actor.ID != id && !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.Users(ctx).Find(ctx, id)
}

// Users lists all accounts. Admins only.
func (s *Service) Users(ctx context.Context, actor *User) ([]*User, error) {
	if !active(actor) {
		return nil, ErrUnauthenticated
	}
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.Users(ctx).List(ctx)
}

// SetUserRole changes target's global role.
func (s *Service) SetUserRole(ctx context.Context, actor *User, targetID primitive.ObjectID, role Role) (*User, error) {
	if !active(actor) {
		return nil, ErrUnauthenticated
	}
	users := s.store.Users(ctx)
	target, err := users.Find(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !CanEditUserRole(actor, target, role) {
		return nil, ErrForbidden
	}
	updated, err := users.SetRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "user.role_changed", map[string]any{
		"target": targetID.Hex(),
		"from":   string(target.Role),
		"to":     string(role),
	})
	return updated, nil
}

// SetUserDisabled enables or disables target. Disabling revokes every refresh token the
// user holds.
func (s *Service) SetUserDisabled(ctx context.Context, actor *User, targetID primitive.ObjectID, disabled bool) (*User, error) {
	if !active(actor) {
		return nil, ErrUnauthenticated
	}
	users := s.store.Users(ctx)
	target, err := users.Find(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !CanEditUserDisabled(actor, target) {
		return nil, ErrForbidden
	}
	updated, err := users.SetDisabled(ctx, targetID, disabled)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{"target": targetID.Hex(), "disabled": disabled}
	if disabled {
		n, err := s.RevokeAllForUser(ctx, targetID)
		if err != nil {
			return nil, err
		}
		fields["revoked_tokens"] = n
	}
	_ = audit.LogEvent(ctx, "user.disabled_changed", fields)
	return updated, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", fmt.Errorf("%w: invalid email %q", ErrInvalidInput, raw)
	}
	return raw, nil
}

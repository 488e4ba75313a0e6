package auth

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Organizations(ctx context.Context) OrganizationStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// UserStore manages user accounts. Create returns ErrConflict on a duplicate email or
// Google id; lookups return ErrNotFound.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id primitive.ObjectID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	SetRole(ctx context.Context, id primitive.ObjectID, role Role) (*User, error)
	SetDisabled(ctx context.Context, id primitive.ObjectID, disabled bool) (*User, error)
	LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// OrganizationPatch carries optional organization field updates.
type OrganizationPatch struct {
	Name      *string
	Subdomain *string
	IsPrivate *bool
}

// OrganizationStore manages organizations and their member lists.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id primitive.ObjectID) (*Organization, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	ListForMember(ctx context.Context, userID primitive.ObjectID) ([]*Organization, error)
	Update(ctx context.Context, id primitive.ObjectID, patch OrganizationPatch, at time.Time) (*Organization, error)
	// UpsertMember sets the member's role, adding the member when absent. created reports
	// which of the two happened.
	UpsertMember(ctx context.Context, id primitive.ObjectID, member OrgMember, at time.Time) (org *Organization, created bool, err error)
	RemoveMember(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (*Organization, error)
}

// RefreshTokenStore manages refresh token records.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, id primitive.ObjectID) (*RefreshToken, error)
	FindByHash(ctx context.Context, hash string) (*RefreshToken, error)
	// ClaimForRotation sets ReplacedBy on id only if the record is still active at now.
	// It returns ErrNotFound when no active record matched; this conditional write is
	// what makes a refresh token redeemable at most once.
	ClaimForRotation(ctx context.Context, id, replacement primitive.ObjectID, now time.Time) error
	// Revoke sets RevokedAt if it is not set yet, otherwise ErrNotFound.
	Revoke(ctx context.Context, id primitive.ObjectID, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID primitive.ObjectID, now time.Time) (int64, error)
}

// MentorDirectory is the slice of the mentor service auth needs: owned mentor ids for
// token claims and mentor creation at sign-up.
type MentorDirectory interface {
	MentorIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	CreateMentorForUser(ctx context.Context, user *User) error
}

package auth

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a global user role. Organization memberships reuse the same set.
type Role string

const (
	RoleUser                Role = "USER"
	RoleContentManager      Role = "CONTENT_MANAGER"
	RoleAdmin               Role = "ADMIN"
	RoleSuperContentManager Role = "SUPER_CONTENT_MANAGER"
	RoleSuperAdmin          Role = "SUPER_ADMIN"
)

// ParseRole validates raw against the known roles.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleContentManager, RoleAdmin, RoleSuperContentManager, RoleSuperAdmin:
		return true
	}
	return false
}

// ManagesContent is true for every role above USER.
func (r Role) ManagesContent() bool {
	return r.Valid() && r != RoleUser
}

// IsAdmin is true for ADMIN and SUPER_ADMIN.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsSuper is true for the SUPER_* roles.
func (r Role) IsSuper() bool {
	return r == RoleSuperAdmin || r == RoleSuperContentManager
}

// User is an account able to sign in.
type User struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email,omitempty"`
	GoogleID     string             `bson:"googleId,omitempty"`
	PasswordHash string             `bson:"passwordHash,omitempty"`
	Role         Role               `bson:"userRole"`
	IsDisabled   bool               `bson:"isDisabled"`
	CreatedAt    time.Time          `bson:"createdAt"`
	LastLoginAt  time.Time          `bson:"lastLoginAt,omitempty"`
}

// OrgPermissionLevel is the access an organization holds on a mentor.
type OrgPermissionLevel string

const (
	OrgPermissionHidden OrgPermissionLevel = "HIDDEN"
	OrgPermissionShare  OrgPermissionLevel = "SHARE"
	OrgPermissionManage OrgPermissionLevel = "MANAGE"
	OrgPermissionAdmin  OrgPermissionLevel = "ADMIN"
)

// ParseOrgPermissionLevel validates raw against the known levels.
func ParseOrgPermissionLevel(raw string) (OrgPermissionLevel, error) {
	lvl := OrgPermissionLevel(strings.ToUpper(strings.TrimSpace(raw)))
	switch lvl {
	case OrgPermissionHidden, OrgPermissionShare, OrgPermissionManage, OrgPermissionAdmin:
		return lvl, nil
	}
	return "", fmt.Errorf("%w: unknown organization permission %q", ErrInvalidInput, raw)
}

// OrgPermission overrides a mentor's visibility or edit rights for one organization.
type OrgPermission struct {
	Org        primitive.ObjectID `bson:"org"`
	Permission OrgPermissionLevel `bson:"permission"`
}

// OrgMember is a user's membership in an organization.
type OrgMember struct {
	User primitive.ObjectID `bson:"user"`
	Role Role               `bson:"role"`
}

// Organization groups users and holds permissions on mentors.
type Organization struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Subdomain string             `bson:"subdomain"`
	IsPrivate bool               `bson:"isPrivate"`
	Members   []OrgMember        `bson:"members"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// MemberRole returns the role userID holds in o.
func (o *Organization) MemberRole(userID primitive.ObjectID) (Role, bool) {
	if o == nil {
		return "", false
	}
	for _, m := range o.Members {
		if m.User == userID {
			return m.Role, true
		}
	}
	return "", false
}

// Membership is the actor side of OrgMember: which org, which role.
type Membership struct {
	Org  primitive.ObjectID
	Role Role
}

// MentorAccess is the subset of a mentor the permission checks need.
type MentorAccess struct {
	Owner          primitive.ObjectID
	IsPrivate      bool
	OrgPermissions []OrgPermission
}

func (m MentorAccess) permissionFor(orgID primitive.ObjectID) (OrgPermissionLevel, bool) {
	for _, p := range m.OrgPermissions {
		if p.Org == orgID {
			return p.Permission, true
		}
	}
	return "", false
}

// RefreshToken is a persisted rotating refresh token. Only the sha256 of the value is stored.
type RefreshToken struct {
	ID         primitive.ObjectID  `bson:"_id"`
	User       primitive.ObjectID  `bson:"user"`
	TokenHash  string              `bson:"tokenHash"`
	Expires    time.Time           `bson:"expires"`
	CreatedAt  time.Time           `bson:"createdAt"`
	RevokedAt  *time.Time          `bson:"revokedAt,omitempty"`
	ReplacedBy *primitive.ObjectID `bson:"replacedBy,omitempty"`
}

// Active reports whether the token can still be redeemed at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ReplacedBy == nil && now.Before(t.Expires)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/audit"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// OrganizationInput carries the fields of a new organization.
type OrganizationInput struct {
	Name      string
	Subdomain string
	IsPrivate bool
}

// OrgService manages organizations and their members.
type OrgService struct {
	store Store
	now   func() time.Time
}

// NewOrgService returns an OrgService over store.
func NewOrgService(store Store) (*OrgService, error) {
	if store == nil {
		return nil, errors.New("organization store is required")
	}
	return &OrgService{store: store, now: time.Now}, nil
}

// Resolve maps a subdomain to its organization. Unknown subdomains yield nil without error.
func (s *OrgService) Resolve(ctx context.Context, subdomain string) (*Organization, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, nil
	}
	org, err := s.store.Organizations(ctx).FindBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

// Organization returns id if actor may view it.
func (s *OrgService) Organization(ctx context.Context, actor *User, id primitive.ObjectID) (*Organization, error) {
	org, err := s.store.Organizations(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanViewOrganization(org, actor) {
		return nil, Deny(actor)
	}
	return org, nil
}

// Organizations lists the organizations actor may view.
func (s *OrgService) Organizations(ctx context.Context, actor *User) ([]*Organization, error) {
	all, err := s.store.Organizations(ctx).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Organization, 0, len(all))
	for _, org := range all {
		if CanViewOrganization(org, actor) {
			out = append(out, org)
		}
	}
	return out, nil
}

// Create adds an organization. SUPER_* roles only.
func (s *OrgService) Create(ctx context.Context, actor *User, in OrganizationInput) (*Organization, error) {
	if !CanCreateOrganization(actor) {
		return nil, Deny(actor)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	subdomain, err := normalizeSubdomain(in.Subdomain)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	org := &Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Subdomain: subdomain,
		IsPrivate: in.IsPrivate,
		Members:   []OrgMember{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Organizations(ctx).Create(ctx, org); err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "organization.created", map[string]any{"org": org.ID.Hex(), "subdomain": subdomain})
	return org, nil
}

// Update applies patch to organization id.
func (s *OrgService) Update(ctx context.Context, actor *User, id primitive.ObjectID, patch OrganizationPatch) (*Organization, error) {
	orgs := s.store.Organizations(ctx)
	org, err := orgs.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEditOrganization(org, actor) {
		return nil, Deny(actor)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: organization name must not be empty", ErrInvalidInput)
		}
		patch.Name = &name
	}
	if patch.Subdomain != nil {
		sub, err := normalizeSubdomain(*patch.Subdomain)
		if err != nil {
			return nil, err
		}
		patch.Subdomain = &sub
	}
	updated, err := orgs.Update(ctx, id, patch, s.now().UTC())
	if err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "organization.updated", map[string]any{"org": id.Hex()})
	return updated, nil
}

// SetMember adds userID to the organization or changes its role.
func (s *OrgService) SetMember(ctx context.Context, actor *User, orgID, userID primitive.ObjectID, role Role) (*Organization, bool, error) {
	if !role.Valid() {
		return nil, false, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	orgs := s.store.Organizations(ctx)
	org, err := orgs.Find(ctx, orgID)
	if err != nil {
		return nil, false, err
	}
	if !CanEditOrganization(org, actor) {
		return nil, false, Deny(actor)
	}
	if role.IsSuper() && !actor.Role.IsSuper() {
		return nil, false, ErrForbidden
	}
	if _, err := s.store.Users(ctx).Find(ctx, userID); err != nil {
		return nil, false, err
	}
	updated, created, err := orgs.UpsertMember(ctx, orgID, OrgMember{User: userID, Role: role}, s.now().UTC())
	if err != nil {
		return nil, false, err
	}
	_ = audit.LogEvent(ctx, "organization.member_set", map[string]any{
		"org":     orgID.Hex(),
		"member":  userID.Hex(),
		"role":    string(role),
		"created": created,
	})
	return updated, created, nil
}

// RemoveMember drops userID from the organization.
func (s *OrgService) RemoveMember(ctx context.Context, actor *User, orgID, userID primitive.ObjectID) (*Organization, error) {
	orgs := s.store.Organizations(ctx)
	org, err := orgs.Find(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !CanEditOrganization(org, actor) {
		return nil, Deny(actor)
	}
	if _, ok := org.MemberRole(userID); !ok {
		return nil, fmt.Errorf("%w: user is not a member", ErrNotFound)
	}
	updated, err := orgs.RemoveMember(ctx, orgID, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "organization.member_removed", map[string]any{"org": orgID.Hex(), "member": userID.Hex()})
	return updated, nil
}

func normalizeSubdomain(raw string) (string, error) {
	sub := strings.ToLower(strings.TrimSpace(raw))
	if !subdomainPattern.MatchString(sub) {
		return "", fmt.Errorf("%w: invalid subdomain %q", ErrInvalidInput, raw)
	}
	return sub, nil
}

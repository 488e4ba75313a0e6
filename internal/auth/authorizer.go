package auth

import (
	"context"
	"fmt"
)

// Authorizer combines the pure permission checks with the membership lookups they need.
// Memberships are only loaded when the mentor carries an override that could grant access
// and neither ownership nor the global role already decided.
type Authorizer struct {
	store Store
}

// NewAuthorizer returns an Authorizer reading memberships from store.
func NewAuthorizer(store Store) *Authorizer {
	return &Authorizer{store: store}
}

// Memberships lists the organizations actor belongs to with the role held in each.
func (a *Authorizer) Memberships(ctx context.Context, actor *User) ([]Membership, error) {
	if !active(actor) {
		return nil, nil
	}
	orgs, err := a.store.Organizations(ctx).ListForMember(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	return MembershipsOf(actor.ID, orgs), nil
}

func (a *Authorizer) needsMemberships(m MentorAccess, actor *User) bool {
	if !active(actor) || actor.ID == m.Owner || actor.Role.ManagesContent() {
		return false
	}
	for _, p := range m.OrgPermissions {
		if p.Permission == OrgPermissionManage || p.Permission == OrgPermissionAdmin {
			return true
		}
	}
	return false
}

func (a *Authorizer) membershipsFor(ctx context.Context, m MentorAccess, actor *User) ([]Membership, error) {
	if !a.needsMemberships(m, actor) {
		return nil, nil
	}
	return a.Memberships(ctx, actor)
}

// ViewMentor evaluates CanViewMentor for the organization selected on the request.
func (a *Authorizer) ViewMentor(ctx context.Context, m MentorAccess, actor *User, org *Organization) (bool, error) {
	if !m.IsPrivate {
		return CanViewMentor(m, actor, org, nil), nil
	}
	if CanViewMentor(m, actor, org, nil) {
		return true, nil
	}
	ms, err := a.membershipsFor(ctx, m, actor)
	if err != nil {
		return false, err
	}
	return CanViewMentor(m, actor, org, ms), nil
}

// EditMentor evaluates CanEditMentor.
func (a *Authorizer) EditMentor(ctx context.Context, m MentorAccess, actor *User) (bool, error) {
	ms, err := a.membershipsFor(ctx, m, actor)
	if err != nil {
		return false, err
	}
	return CanEditMentor(m, actor, ms), nil
}

// EditMentorPrivacy evaluates CanEditMentorPrivacy.
func (a *Authorizer) EditMentorPrivacy(ctx context.Context, m MentorAccess, actor *User) (bool, error) {
	ms, err := a.membershipsFor(ctx, m, actor)
	if err != nil {
		return false, err
	}
	return CanEditMentorPrivacy(m, actor, ms), nil
}

// Deny converts a failed check into the error reported to the caller.
func Deny(actor *User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

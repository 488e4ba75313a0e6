package auth

import "go.mongodb.org/mongo-driver/bson/primitive"

// The checks below are pure functions over loaded documents. A nil or disabled actor
// never passes a check that needs an identity.

func active(actor *User) bool {
	return actor != nil && !actor.IsDisabled
}

// CanViewMentor decides whether actor may see the mentor when the request runs in the
// context of org (nil when no organization was selected).
func CanViewMentor(m MentorAccess, actor *User, org *Organization, memberships []Membership) bool {
	var override OrgPermissionLevel
	if org != nil {
		override, _ = m.permissionFor(org.ID)
	}
	if !m.IsPrivate {
		return override != OrgPermissionHidden
	}
	if override == OrgPermissionShare {
		return true
	}
	if !active(actor) {
		return false
	}
	if actor.ID == m.Owner || actor.Role.ManagesContent() {
		return true
	}
	return CanEditMentor(m, actor, memberships)
}

// CanEditMentor allows the owner, content managers, and members of an organization that
// holds MANAGE or ADMIN on the mentor with a content-managing org role.
func CanEditMentor(m MentorAccess, actor *User, memberships []Membership) bool {
	if !active(actor) {
		return false
	}
	if actor.ID == m.Owner || actor.Role.ManagesContent() {
		return true
	}
	return orgGrants(m, memberships, OrgPermissionManage, OrgPermissionAdmin)
}

// CanEditMentorPrivacy is CanEditMentor restricted to organizations holding ADMIN.
func CanEditMentorPrivacy(m MentorAccess, actor *User, memberships []Membership) bool {
	if !active(actor) {
		return false
	}
	if actor.ID == m.Owner || actor.Role.ManagesContent() {
		return true
	}
	return orgGrants(m, memberships, OrgPermissionAdmin)
}

func orgGrants(m MentorAccess, memberships []Membership, levels ...OrgPermissionLevel) bool {
	for _, ms := range memberships {
		if !ms.Role.ManagesContent() {
			continue
		}
		lvl, ok := m.permissionFor(ms.Org)
		if !ok {
			continue
		}
		for _, want := range levels {
			if lvl == want {
				return true
			}
		}
	}
	return false
}

// CanViewOrganization allows everyone on public organizations. Private ones are visible to
// members and to admins.
func CanViewOrganization(org *Organization, actor *User) bool {
	if org == nil {
		return false
	}
	if !org.IsPrivate {
		return true
	}
	if !active(actor) {
		return false
	}
	if actor.Role.IsAdmin() || actor.Role.IsSuper() {
		return true
	}
	_, member := org.MemberRole(actor.ID)
	return member
}

// CanEditOrganization allows SUPER_* roles and members with a content-managing org role.
func CanEditOrganization(org *Organization, actor *User) bool {
	if org == nil || !active(actor) {
		return false
	}
	if actor.Role.IsSuper() {
		return true
	}
	role, ok := org.MemberRole(actor.ID)
	return ok && role.ManagesContent()
}

// CanCreateOrganization allows SUPER_* roles only.
func CanCreateOrganization(actor *User) bool {
	return active(actor) && actor.Role.IsSuper()
}

// CanEditContent guards subjects and questions.
func CanEditContent(actor *User) bool {
	return active(actor) && actor.Role.ManagesContent()
}

// CanEditUserRole allows admins to change target's role to newRole. Only SUPER_ADMIN may
// touch SUPER_* roles, and nobody changes their own role.
func CanEditUserRole(actor, target *User, newRole Role) bool {
	if !canAdministerUser(actor, target) {
		return false
	}
	if newRole.IsSuper() && actor.Role != RoleSuperAdmin {
		return false
	}
	return newRole.Valid()
}

// CanEditUserDisabled follows the role-edit rule without a new role.
func CanEditUserDisabled(actor, target *User) bool {
	return canAdministerUser(actor, target)
}

func canAdministerUser(actor, target *User) bool {
	if !active(actor) || target == nil {
		return false
	}
	if !actor.Role.IsAdmin() || actor.ID == target.ID {
		return false
	}
	if target.Role.IsSuper() && actor.Role != RoleSuperAdmin {
		return false
	}
	return true
}

// MembershipsOf lists the memberships userID holds across orgs.
func MembershipsOf(userID primitive.ObjectID, orgs []*Organization) []Membership {
	var out []Membership
	for _, o := range orgs {
		if role, ok := o.MemberRole(userID); ok {
			out = append(out, Membership{Org: o.ID, Role: role})
		}
	}
	return out
}

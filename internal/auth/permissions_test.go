package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newUser(role Role) *User {
	return &User{ID: primitive.NewObjectID(), Role: role}
}

func TestCanViewMentor(t *testing.T) {
	owner := newUser(RoleUser)
	stranger := newUser(RoleUser)
	admin := newUser(RoleAdmin)
	org := &Organization{ID: primitive.NewObjectID()}
	otherOrg := &Organization{ID: primitive.NewObjectID()}

	public := MentorAccess{Owner: owner.ID}
	private := MentorAccess{Owner: owner.ID, IsPrivate: true}
	hiddenInOrg := MentorAccess{Owner: owner.ID, OrgPermissions: []OrgPermission{{Org: org.ID, Permission: OrgPermissionHidden}}}
	sharedInOrg := MentorAccess{Owner: owner.ID, IsPrivate: true, OrgPermissions: []OrgPermission{{Org: org.ID, Permission: OrgPermissionShare}}}

	tests := []struct {
		name  string
		m     MentorAccess
		actor *User
		org   *Organization
		want  bool
	}{
		{"public anonymous", public, nil, nil, true},
		{"public hidden in org", hiddenInOrg, nil, org, false},
		{"public hidden applies to owner too", hiddenInOrg, owner, org, false},
		{"public hidden only in that org", hiddenInOrg, nil, otherOrg, true},
		{"private anonymous", private, nil, nil, false},
		{"private stranger", private, stranger, nil, false},
		{"private owner", private, owner, nil, true},
		{"private admin", private, admin, nil, true},
		{"private content manager", private, newUser(RoleContentManager), nil, true},
		{"private super content manager", private, newUser(RoleSuperContentManager), nil, true},
		{"private shared in org anonymous", sharedInOrg, nil, org, true},
		{"private shared elsewhere", sharedInOrg, nil, otherOrg, false},
		{"private disabled owner", private, &User{ID: owner.ID, Role: RoleUser, IsDisabled: true}, nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanViewMentor(tc.m, tc.actor, tc.org, nil))
		})
	}
}

func TestCanViewMentorThroughOrgEditRight(t *testing.T) {
	owner := newUser(RoleUser)
	member := newUser(RoleUser)
	org := primitive.NewObjectID()
	m := MentorAccess{Owner: owner.ID, IsPrivate: true, OrgPermissions: []OrgPermission{{Org: org, Permission: OrgPermissionManage}}}

	assert.False(t, CanViewMentor(m, member, nil, []Membership{{Org: org, Role: RoleUser}}))
	assert.True(t, CanViewMentor(m, member, nil, []Membership{{Org: org, Role: RoleContentManager}}))
}

func TestPrivateMentorNeverVisibleAnonymouslyWithoutShare(t *testing.T) {
	owner := primitive.NewObjectID()
	levels := []OrgPermissionLevel{OrgPermissionHidden, OrgPermissionManage, OrgPermissionAdmin}
	for _, lvl := range levels {
		org := &Organization{ID: primitive.NewObjectID()}
		m := MentorAccess{Owner: owner, IsPrivate: true, OrgPermissions: []OrgPermission{{Org: org.ID, Permission: lvl}}}
		assert.False(t, CanViewMentor(m, nil, org, nil), "level %s", lvl)
		assert.False(t, CanViewMentor(m, nil, nil, nil), "level %s without org", lvl)
	}
}

func TestOwnerCanAlwaysEdit(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleContentManager, RoleAdmin, RoleSuperContentManager, RoleSuperAdmin} {
		owner := newUser(role)
		for _, private := range []bool{true, false} {
			m := MentorAccess{Owner: owner.ID, IsPrivate: private}
			assert.True(t, CanEditMentor(m, owner, nil), "role %s private %v", role, private)
			assert.True(t, CanEditMentorPrivacy(m, owner, nil), "role %s private %v", role, private)
		}
	}
}

func TestCanEditMentorThroughOrg(t *testing.T) {
	owner := newUser(RoleUser)
	member := newUser(RoleUser)
	org := primitive.NewObjectID()

	manage := MentorAccess{Owner: owner.ID, OrgPermissions: []OrgPermission{{Org: org, Permission: OrgPermissionManage}}}
	admin := MentorAccess{Owner: owner.ID, OrgPermissions: []OrgPermission{{Org: org, Permission: OrgPermissionAdmin}}}
	share := MentorAccess{Owner: owner.ID, OrgPermissions: []OrgPermission{{Org: org, Permission: OrgPermissionShare}}}

	managers := []Membership{{Org: org, Role: RoleContentManager}}
	plain := []Membership{{Org: org, Role: RoleUser}}

	assert.True(t, CanEditMentor(manage, member, managers))
	assert.True(t, CanEditMentor(admin, member, managers))
	assert.False(t, CanEditMentor(share, member, managers))
	assert.False(t, CanEditMentor(manage, member, plain))
	assert.False(t, CanEditMentor(manage, member, nil))
	assert.False(t, CanEditMentor(manage, nil, managers))

	assert.False(t, CanEditMentorPrivacy(manage, member, managers))
	assert.True(t, CanEditMentorPrivacy(admin, member, managers))
}

func TestOrganizationChecks(t *testing.T) {
	member := newUser(RoleUser)
	manager := newUser(RoleUser)
	outsider := newUser(RoleUser)
	private := &Organization{
		ID:        primitive.NewObjectID(),
		IsPrivate: true,
		Members:   []OrgMember{{User: member.ID, Role: RoleUser}, {User: manager.ID, Role: RoleContentManager}},
	}
	public := &Organization{ID: primitive.NewObjectID()}

	assert.True(t, CanViewOrganization(public, nil))
	assert.False(t, CanViewOrganization(private, nil))
	assert.False(t, CanViewOrganization(private, outsider))
	assert.True(t, CanViewOrganization(private, member))
	assert.True(t, CanViewOrganization(private, newUser(RoleAdmin)))
	assert.True(t, CanViewOrganization(private, newUser(RoleSuperContentManager)))
	assert.False(t, CanViewOrganization(private, newUser(RoleContentManager)))

	assert.False(t, CanEditOrganization(private, member))
	assert.True(t, CanEditOrganization(private, manager))
	assert.True(t, CanEditOrganization(private, newUser(RoleSuperAdmin)))
	assert.False(t, CanEditOrganization(private, newUser(RoleAdmin)))
	assert.False(t, CanEditOrganization(public, nil))

	assert.True(t, CanCreateOrganization(newUser(RoleSuperContentManager)))
	assert.False(t, CanCreateOrganization(newUser(RoleAdmin)))
	assert.False(t, CanCreateOrganization(nil))
}

func TestCanEditContent(t *testing.T) {
	assert.False(t, CanEditContent(nil))
	assert.False(t, CanEditContent(newUser(RoleUser)))
	assert.True(t, CanEditContent(newUser(RoleContentManager)))
	assert.False(t, CanEditContent(&User{Role: RoleAdmin, IsDisabled: true}))
}

func TestCanEditUserRole(t *testing.T) {
	admin := newUser(RoleAdmin)
	super := newUser(RoleSuperAdmin)
	user := newUser(RoleUser)
	superCM := newUser(RoleSuperContentManager)

	assert.True(t, CanEditUserRole(admin, user, RoleContentManager))
	assert.True(t, CanEditUserRole(admin, user, RoleAdmin))
	assert.False(t, CanEditUserRole(admin, user, RoleSuperAdmin))
	assert.False(t, CanEditUserRole(admin, superCM, RoleUser))
	assert.True(t, CanEditUserRole(super, user, RoleSuperContentManager))
	assert.True(t, CanEditUserRole(super, superCM, RoleUser))
	assert.False(t, CanEditUserRole(super, super, RoleUser), "no self edits")
	assert.False(t, CanEditUserRole(user, admin, RoleUser))
	assert.False(t, CanEditUserRole(newUser(RoleContentManager), user, RoleContentManager))
	assert.False(t, CanEditUserRole(admin, user, Role("OWNER")))
	assert.False(t, CanEditUserRole(nil, user, RoleUser))

	assert.True(t, CanEditUserDisabled(admin, user))
	assert.False(t, CanEditUserDisabled(admin, superCM))
	assert.True(t, CanEditUserDisabled(super, superCM))
	assert.False(t, CanEditUserDisabled(admin, admin))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" super_admin ")
	assert.NoError(t, err)
	assert.Equal(t, RoleSuperAdmin, r)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

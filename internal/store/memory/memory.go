// Package memory is a mutex guarded, process local implementation of the auth and
// mentor stores. It backs tests and local runs without MONGO_URI.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/mentor"
)

// Store holds every collection behind one lock.
type Store struct {
	mu        sync.RWMutex
	users     map[primitive.ObjectID]auth.User
	orgs      map[primitive.ObjectID]auth.Organization
	tokens    map[primitive.ObjectID]auth.RefreshToken
	mentors   map[primitive.ObjectID]mentor.Mentor
	subjects  map[primitive.ObjectID]mentor.Subject
	questions map[primitive.ObjectID]mentor.Question
	answers   map[mentor.AnswerKey]mentor.Answer
}

var (
	_ auth.Store   = (*Store)(nil)
	_ mentor.Store = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[primitive.ObjectID]auth.User),
		orgs:      make(map[primitive.ObjectID]auth.Organization),
		tokens:    make(map[primitive.ObjectID]auth.RefreshToken),
		mentors:   make(map[primitive.ObjectID]mentor.Mentor),
		subjects:  make(map[primitive.ObjectID]mentor.Subject),
		questions: make(map[primitive.ObjectID]mentor.Question),
		answers:   make(map[mentor.AnswerKey]mentor.Answer),
	}
}

// Ping implements the readiness probe.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Users(context.Context) auth.UserStore                 { return userStore{s} }
func (s *Store) Organizations(context.Context) auth.OrganizationStore { return orgStore{s} }
func (s *Store) RefreshTokens(context.Context) auth.RefreshTokenStore { return tokenStore{s} }
func (s *Store) Mentors(context.Context) mentor.MentorStore           { return mentorStore{s} }
func (s *Store) Subjects(context.Context) mentor.SubjectStore         { return subjectStore{s} }
func (s *Store) Questions(context.Context) mentor.QuestionStore       { return questionStore{s} }
func (s *Store) Answers(context.Context) mentor.AnswerStore           { return answerStore{s} }

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *auth.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[user.ID]; ok {
		return auth.ErrConflict
	}
	for _, existing := range u.s.users {
		if user.Email != "" && strings.EqualFold(existing.Email, user.Email) {
			return auth.ErrConflict
		}
		if user.GoogleID != "" && existing.GoogleID == user.GoogleID {
			return auth.ErrConflict
		}
	}
	u.s.users[user.ID] = *user
	return nil
}

func (u userStore) Find(_ context.Context, id primitive.ObjectID) (*auth.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &user, nil
}

func (u userStore) findBy(match func(auth.User) bool) (*auth.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, user := range u.s.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (u userStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return u.findBy(func(user auth.User) bool { return email != "" && strings.EqualFold(user.Email, email) })
}

func (u userStore) FindByGoogleID(_ context.Context, googleID string) (*auth.User, error) {
	return u.findBy(func(user auth.User) bool { return googleID != "" && user.GoogleID == googleID })
}

func (u userStore) List(context.Context) ([]*auth.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	out := make([]*auth.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		user := user
		out = append(out, &user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (u userStore) update(id primitive.ObjectID, fn func(*auth.User)) (*auth.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	fn(&user)
	u.s.users[id] = user
	return &user, nil
}

func (u userStore) SetRole(_ context.Context, id primitive.ObjectID, role auth.Role) (*auth.User, error) {
	return u.update(id, func(user *auth.User) { user.Role = role })
}

func (u userStore) SetDisabled(_ context.Context, id primitive.ObjectID, disabled bool) (*auth.User, error) {
	return u.update(id, func(user *auth.User) { user.IsDisabled = disabled })
}

func (u userStore) LinkGoogle(_ context.Context, id primitive.ObjectID, googleID string) error {
	_, err := u.update(id, func(user *auth.User) { user.GoogleID = googleID })
	return err
}

func (u userStore) TouchLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := u.update(id, func(user *auth.User) { user.LastLoginAt = at })
	return err
}

type orgStore struct{ s *Store }

func cloneOrg(o auth.Organization) *auth.Organization {
	o.Members = append([]auth.OrgMember(nil), o.Members...)
	return &o
}

func (o orgStore) Create(_ context.Context, org *auth.Organization) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, ok := o.s.orgs[org.ID]; ok {
		return auth.ErrConflict
	}
	for _, existing := range o.s.orgs {
		if existing.Subdomain == org.Subdomain {
			return auth.ErrConflict
		}
	}
	o.s.orgs[org.ID] = *cloneOrg(*org)
	return nil
}

func (o orgStore) Find(_ context.Context, id primitive.ObjectID) (*auth.Organization, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	org, ok := o.s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return cloneOrg(org), nil
}

func (o orgStore) FindBySubdomain(_ context.Context, subdomain string) (*auth.Organization, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	for _, org := range o.s.orgs {
		if org.Subdomain == subdomain {
			return cloneOrg(org), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (o orgStore) list(match func(auth.Organization) bool) []*auth.Organization {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	var out []*auth.Organization
	for _, org := range o.s.orgs {
		if match(org) {
			out = append(out, cloneOrg(org))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (o orgStore) List(context.Context) ([]*auth.Organization, error) {
	return o.list(func(auth.Organization) bool { return true }), nil
}

func (o orgStore) ListForMember(_ context.Context, userID primitive.ObjectID) ([]*auth.Organization, error) {
	return o.list(func(org auth.Organization) bool {
		_, ok := org.MemberRole(userID)
		return ok
	}), nil
}

func (o orgStore) mutate(id primitive.ObjectID, fn func(*auth.Organization) error) (*auth.Organization, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	org, ok := o.s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	next := cloneOrg(org)
	if err := fn(next); err != nil {
		return nil, err
	}
	o.s.orgs[id] = *next
	return cloneOrg(*next), nil
}

func (o orgStore) Update(_ context.Context, id primitive.ObjectID, patch auth.OrganizationPatch, at time.Time) (*auth.Organization, error) {
	return o.mutate(id, func(org *auth.Organization) error {
		if patch.Subdomain != nil && *patch.Subdomain != org.Subdomain {
			for otherID, other := range o.s.orgs {
				if otherID != id && other.Subdomain == *patch.Subdomain {
					return auth.ErrConflict
				}
			}
			org.Subdomain = *patch.Subdomain
		}
		if patch.Name != nil {
			org.Name = *patch.Name
		}
		if patch.IsPrivate != nil {
			org.IsPrivate = *patch.IsPrivate
		}
		org.UpdatedAt = at
		return nil
	})
}

func (o orgStore) UpsertMember(_ context.Context, id primitive.ObjectID, member auth.OrgMember, at time.Time) (*auth.Organization, bool, error) {
	created := true
	org, err := o.mutate(id, func(org *auth.Organization) error {
		for i, m := range org.Members {
			if m.User == member.User {
				org.Members[i].Role = member.Role
				created = false
				break
			}
		}
		if created {
			org.Members = append(org.Members, member)
		}
		org.UpdatedAt = at
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return org, created, nil
}

func (o orgStore) RemoveMember(_ context.Context, id, userID primitive.ObjectID, at time.Time) (*auth.Organization, error) {
	return o.mutate(id, func(org *auth.Organization) error {
		kept := org.Members[:0]
		for _, m := range org.Members {
			if m.User != userID {
				kept = append(kept, m)
			}
		}
		org.Members = kept
		org.UpdatedAt = at
		return nil
	})
}

type tokenStore struct{ s *Store }

func (t tokenStore) Create(_ context.Context, tok *auth.RefreshToken) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.tokens[tok.ID]; ok {
		return auth.ErrConflict
	}
	for _, existing := range t.s.tokens {
		if existing.TokenHash == tok.TokenHash {
			return auth.ErrConflict
		}
	}
	t.s.tokens[tok.ID] = *tok
	return nil
}

func (t tokenStore) Find(_ context.Context, id primitive.ObjectID) (*auth.RefreshToken, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tok, ok := t.s.tokens[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &tok, nil
}

func (t tokenStore) FindByHash(_ context.Context, hash string) (*auth.RefreshToken, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, tok := range t.s.tokens {
		if tok.TokenHash == hash {
			found := tok
			return &found, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (t tokenStore) ClaimForRotation(_ context.Context, id, replacement primitive.ObjectID, now time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tok, ok := t.s.tokens[id]
	if !ok || !tok.Active(now) {
		return auth.ErrNotFound
	}
	tok.ReplacedBy = &replacement
	t.s.tokens[id] = tok
	return nil
}

func (t tokenStore) Revoke(_ context.Context, id primitive.ObjectID, now time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tok, ok := t.s.tokens[id]
	if !ok || tok.RevokedAt != nil {
		return auth.ErrNotFound
	}
	tok.RevokedAt = &now
	t.s.tokens[id] = tok
	return nil
}

func (t tokenStore) RevokeAllForUser(_ context.Context, userID primitive.ObjectID, now time.Time) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var n int64
	for id, tok := range t.s.tokens {
		if tok.User != userID || tok.RevokedAt != nil {
			continue
		}
		at := now
		tok.RevokedAt = &at
		t.s.tokens[id] = tok
		n++
	}
	return n, nil
}

package mentor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/audit"
	"mentorgraph.org/internal/auth"
)

// Service applies permission checks around mentor content.
type Service struct {
	store Store
	authz *auth.Authorizer
	now   func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs Service.
func NewService(store Store, authz *auth.Authorizer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("mentor store is required")
	}
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	s := &Service{store: store, authz: authz, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MentorIDsForUser returns the ids of mentors owned by userID.
func (s *Service) MentorIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	m, err := s.store.Mentors(ctx).FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []primitive.ObjectID{m.ID}, nil
}

// CreateMentorForUser creates the private, empty mentor every new account starts with.
func (s *Service) CreateMentorForUser(ctx context.Context, user *auth.User) error {
	now := s.now().UTC()
	m := &Mentor{
		ID:             primitive.NewObjectID(),
		User:           user.ID,
		Name:           user.Name,
		FirstName:      firstName(user.Name),
		MentorType:     TypeVideo,
		IsPrivate:      true,
		OrgPermissions: []auth.OrgPermission{},
		Subjects:       []primitive.ObjectID{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Mentors(ctx).Create(ctx, m); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil
		}
		return err
	}
	return nil
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return ""
}

// Mentor returns id when actor may view it in the context of org.
func (s *Service) Mentor(ctx context.Context, actor *auth.User, org *auth.Organization, id primitive.ObjectID) (*Mentor, error) {
	m, err := s.store.Mentors(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.authz.ViewMentor(ctx, m.Access(), actor, org)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, auth.Deny(actor)
	}
	return m, nil
}

// Mentors lists the mentors actor may view in the context of org.
func (s *Service) Mentors(ctx context.Context, actor *auth.User, org *auth.Organization) ([]*Mentor, error) {
	all, err := s.store.Mentors(ctx).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Mentor, 0, len(all))
	for _, m := range all {
		ok, err := s.authz.ViewMentor(ctx, m.Access(), actor, org)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// DetailsInput carries the editable descriptive fields of a mentor.
type DetailsInput struct {
	Name           *string
	FirstName      *string
	Title          *string
	MentorType     *Type
	Subjects       *[]primitive.ObjectID
	DefaultSubject *primitive.ObjectID
}

// UpdateDetails edits descriptive fields. Referenced subjects must exist and the default
// subject must be one of the mentor's subjects. Replacing the subjects without naming a
// default drops a default that is no longer listed.
func (s *Service) UpdateDetails(ctx context.Context, actor *auth.User, id primitive.ObjectID, in DetailsInput) (*Mentor, error) {
	m, err := s.editable(ctx, actor, id, s.authz.EditMentor)
	if err != nil {
		return nil, err
	}
	patch := MentorPatch{
		Name:           trimmed(in.Name),
		FirstName:      trimmed(in.FirstName),
		Title:          trimmed(in.Title),
		MentorType:     in.MentorType,
		Subjects:       in.Subjects,
		DefaultSubject: in.DefaultSubject,
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	subjects := m.Subjects
	if in.Subjects != nil {
		subjects = dedupeIDs(*in.Subjects)
		patch.Subjects = &subjects
		for _, sid := range subjects {
			if _, err := s.store.Subjects(ctx).Find(ctx, sid); err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil, fmt.Errorf("%w: unknown subject %s", ErrInvalidInput, sid.Hex())
				}
				return nil, err
			}
		}
	}
	if in.DefaultSubject != nil && !containsID(subjects, *in.DefaultSubject) {
		return nil, fmt.Errorf("%w: default subject must be one of the mentor's subjects", ErrInvalidInput)
	}
	if in.DefaultSubject == nil && m.DefaultSubject != nil && !containsID(subjects, *m.DefaultSubject) {
		patch.ClearDefaultSubject = true
	}
	return s.store.Mentors(ctx).Update(ctx, id, patch, s.now().UTC())
}

// UpdatePrivacy toggles isPrivate.
func (s *Service) UpdatePrivacy(ctx context.Context, actor *auth.User, id primitive.ObjectID, isPrivate bool) (*Mentor, error) {
	if _, err := s.editable(ctx, actor, id, s.authz.EditMentorPrivacy); err != nil {
		return nil, err
	}
	updated, err := s.store.Mentors(ctx).Update(ctx, id, MentorPatch{IsPrivate: &isPrivate}, s.now().UTC())
	if err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "mentor.privacy_changed", map[string]any{"mentor": id.Hex(), "is_private": isPrivate})
	return updated, nil
}

// UpdateOrgPermissions replaces the per-organization overrides. It requires the same
// right as changing privacy. A later entry for the same organization wins.
func (s *Service) UpdateOrgPermissions(ctx context.Context, actor *auth.User, id primitive.ObjectID, perms []auth.OrgPermission) (*Mentor, error) {
	if _, err := s.editable(ctx, actor, id, s.authz.EditMentorPrivacy); err != nil {
		return nil, err
	}
	byOrg := make(map[primitive.ObjectID]int, len(perms))
	out := make([]auth.OrgPermission, 0, len(perms))
	for _, p := range perms {
		if p.Org.IsZero() {
			return nil, fmt.Errorf("%w: organization is required", ErrInvalidInput)
		}
		if i, ok := byOrg[p.Org]; ok {
			out[i] = p
			continue
		}
		byOrg[p.Org] = len(out)
		out = append(out, p)
	}
	updated, err := s.store.Mentors(ctx).Update(ctx, id, MentorPatch{OrgPermissions: &out}, s.now().UTC())
	if err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "mentor.org_permissions_changed", map[string]any{"mentor": id.Hex(), "count": len(out)})
	return updated, nil
}

type check func(context.Context, auth.MentorAccess, *auth.User) (bool, error)

func (s *Service) editable(ctx context.Context, actor *auth.User, id primitive.ObjectID, allowed check) (*Mentor, error) {
	if actor == nil {
		return nil, auth.ErrUnauthenticated
	}
	m, err := s.store.Mentors(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := allowed(ctx, m.Access(), actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, auth.Deny(actor)
	}
	return m, nil
}

// Answers lists a mentor's answers when the mentor is visible to actor.
func (s *Service) Answers(ctx context.Context, actor *auth.User, org *auth.Organization, mentorID primitive.ObjectID) ([]*Answer, error) {
	if _, err := s.Mentor(ctx, actor, org, mentorID); err != nil {
		return nil, err
	}
	return s.store.Answers(ctx).ListByMentor(ctx, mentorID)
}

// AnswerInput carries answer fields to write.
type AnswerInput struct {
	Transcript *string
	Status     *Status
	Media      *[]Media
}

// UpdateAnswer creates or updates the mentor's answer to questionID. created is true
// when no answer existed before.
func (s *Service) UpdateAnswer(ctx context.Context, actor *auth.User, mentorID, questionID primitive.ObjectID, in AnswerInput) (*Answer, bool, error) {
	if _, err := s.editable(ctx, actor, mentorID, s.authz.EditMentor); err != nil {
		return nil, false, err
	}
	q, err := s.store.Questions(ctx).Find(ctx, questionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("%w: unknown question %s", ErrInvalidInput, questionID.Hex())
		}
		return nil, false, err
	}
	if q.Mentor != nil && *q.Mentor != mentorID {
		return nil, false, fmt.Errorf("%w: question belongs to another mentor", ErrInvalidInput)
	}
	if in.Media != nil {
		for _, md := range *in.Media {
			if strings.TrimSpace(md.URL) == "" || strings.TrimSpace(md.Type) == "" {
				return nil, false, fmt.Errorf("%w: media requires type and url", ErrInvalidInput)
			}
		}
	}
	key := AnswerKey{Mentor: mentorID, Question: questionID}
	patch := AnswerPatch{Transcript: in.Transcript, Status: in.Status, Media: in.Media}
	return s.store.Answers(ctx).Upsert(ctx, key, patch, s.now().UTC())
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func dedupeIDs(in []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(in))
	out := make([]primitive.ObjectID, 0, len(in))
	for _, id := range in {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsID(list []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

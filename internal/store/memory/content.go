package memory

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/mentor"
)

type mentorStore struct{ s *Store }

func cloneMentor(m mentor.Mentor) *mentor.Mentor {
	m.OrgPermissions = append([]auth.OrgPermission(nil), m.OrgPermissions...)
	m.Subjects = append([]primitive.ObjectID(nil), m.Subjects...)
	return &m
}

func (ms mentorStore) Create(_ context.Context, m *mentor.Mentor) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	if _, ok := ms.s.mentors[m.ID]; ok {
		return mentor.ErrConflict
	}
	for _, existing := range ms.s.mentors {
		if existing.User == m.User {
			return mentor.ErrConflict
		}
	}
	ms.s.mentors[m.ID] = *cloneMentor(*m)
	return nil
}

func (ms mentorStore) Find(_ context.Context, id primitive.ObjectID) (*mentor.Mentor, error) {
	ms.s.mu.RLock()
	defer ms.s.mu.RUnlock()
	m, ok := ms.s.mentors[id]
	if !ok {
		return nil, mentor.ErrNotFound
	}
	return cloneMentor(m), nil
}

func (ms mentorStore) FindByUser(_ context.Context, userID primitive.ObjectID) (*mentor.Mentor, error) {
	ms.s.mu.RLock()
	defer ms.s.mu.RUnlock()
	for _, m := range ms.s.mentors {
		if m.User == userID {
			return cloneMentor(m), nil
		}
	}
	return nil, mentor.ErrNotFound
}

func (ms mentorStore) List(context.Context) ([]*mentor.Mentor, error) {
	ms.s.mu.RLock()
	defer ms.s.mu.RUnlock()
	out := make([]*mentor.Mentor, 0, len(ms.s.mentors))
	for _, m := range ms.s.mentors {
		out = append(out, cloneMentor(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (ms mentorStore) Update(_ context.Context, id primitive.ObjectID, p mentor.MentorPatch, at time.Time) (*mentor.Mentor, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m, ok := ms.s.mentors[id]
	if !ok {
		return nil, mentor.ErrNotFound
	}
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.FirstName != nil {
		m.FirstName = *p.FirstName
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.MentorType != nil {
		m.MentorType = *p.MentorType
	}
	if p.IsPrivate != nil {
		m.IsPrivate = *p.IsPrivate
	}
	if p.OrgPermissions != nil {
		m.OrgPermissions = append([]auth.OrgPermission{}, (*p.OrgPermissions)...)
	}
	if p.Subjects != nil {
		m.Subjects = append([]primitive.ObjectID{}, (*p.Subjects)...)
	}
	switch {
	case p.ClearDefaultSubject:
		m.DefaultSubject = nil
	case p.DefaultSubject != nil:
		ds := *p.DefaultSubject
		m.DefaultSubject = &ds
	}
	m.UpdatedAt = at
	ms.s.mentors[id] = m
	return cloneMentor(m), nil
}

type subjectStore struct{ s *Store }

func (ss subjectStore) Create(_ context.Context, subj *mentor.Subject) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if _, ok := ss.s.subjects[subj.ID]; ok {
		return mentor.ErrConflict
	}
	ss.s.subjects[subj.ID] = *subj
	return nil
}

func (ss subjectStore) Find(_ context.Context, id primitive.ObjectID) (*mentor.Subject, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()
	subj, ok := ss.s.subjects[id]
	if !ok {
		return nil, mentor.ErrNotFound
	}
	return &subj, nil
}

func (ss subjectStore) List(context.Context) ([]*mentor.Subject, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()
	out := make([]*mentor.Subject, 0, len(ss.s.subjects))
	for _, subj := range ss.s.subjects {
		subj := subj
		out = append(out, &subj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (ss subjectStore) Replace(_ context.Context, subj *mentor.Subject) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if _, ok := ss.s.subjects[subj.ID]; !ok {
		return mentor.ErrNotFound
	}
	ss.s.subjects[subj.ID] = *subj
	return nil
}

type questionStore struct{ s *Store }

func (qs questionStore) Create(_ context.Context, q *mentor.Question) error {
	qs.s.mu.Lock()
	defer qs.s.mu.Unlock()
	if _, ok := qs.s.questions[q.ID]; ok {
		return mentor.ErrConflict
	}
	qs.s.questions[q.ID] = *q
	return nil
}

func (qs questionStore) Find(_ context.Context, id primitive.ObjectID) (*mentor.Question, error) {
	qs.s.mu.RLock()
	defer qs.s.mu.RUnlock()
	q, ok := qs.s.questions[id]
	if !ok {
		return nil, mentor.ErrNotFound
	}
	return &q, nil
}

func (qs questionStore) List(context.Context) ([]*mentor.Question, error) {
	qs.s.mu.RLock()
	defer qs.s.mu.RUnlock()
	out := make([]*mentor.Question, 0, len(qs.s.questions))
	for _, q := range qs.s.questions {
		q := q
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (qs questionStore) Replace(_ context.Context, q *mentor.Question) error {
	qs.s.mu.Lock()
	defer qs.s.mu.Unlock()
	if _, ok := qs.s.questions[q.ID]; !ok {
		return mentor.ErrNotFound
	}
	qs.s.questions[q.ID] = *q
	return nil
}

type answerStore struct{ s *Store }

func (as answerStore) ListByMentor(_ context.Context, mentorID primitive.ObjectID) ([]*mentor.Answer, error) {
	as.s.mu.RLock()
	defer as.s.mu.RUnlock()
	var out []*mentor.Answer
	for key, a := range as.s.answers {
		if key.Mentor == mentorID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Question.Hex() < out[j].Question.Hex() })
	return out, nil
}

func (as answerStore) Upsert(_ context.Context, key mentor.AnswerKey, p mentor.AnswerPatch, at time.Time) (*mentor.Answer, bool, error) {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	a, exists := as.s.answers[key]
	if !exists {
		a = mentor.Answer{
			ID:        primitive.NewObjectID(),
			Mentor:    key.Mentor,
			Question:  key.Question,
			Status:    mentor.StatusNone,
			Media:     []mentor.Media{},
			CreatedAt: at,
		}
	}
	if p.Transcript != nil {
		a.Transcript = *p.Transcript
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Media != nil {
		a.Media = append([]mentor.Media{}, (*p.Media)...)
	}
	a.UpdatedAt = at
	as.s.answers[key] = a
	return &a, !exists, nil
}

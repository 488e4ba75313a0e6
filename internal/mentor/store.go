package mentor

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
)

// Store describes persistence operations required by the mentor service.
type Store interface {
	Mentors(ctx context.Context) MentorStore
	Subjects(ctx context.Context) SubjectStore
	Questions(ctx context.Context) QuestionStore
	Answers(ctx context.Context) AnswerStore
}

// MentorPatch carries optional mentor field updates.
type MentorPatch struct {
	Name           *string
	FirstName      *string
	Title          *string
	MentorType     *Type
	IsPrivate      *bool
	OrgPermissions *[]auth.OrgPermission
	Subjects       *[]primitive.ObjectID
	DefaultSubject *primitive.ObjectID
	// ClearDefaultSubject removes the default subject; DefaultSubject is ignored.
	ClearDefaultSubject bool
}

// MentorStore manages mentors. Create returns ErrConflict when the user already owns one.
type MentorStore interface {
	Create(ctx context.Context, m *Mentor) error
	Find(ctx context.Context, id primitive.ObjectID) (*Mentor, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*Mentor, error)
	List(ctx context.Context) ([]*Mentor, error)
	Update(ctx context.Context, id primitive.ObjectID, patch MentorPatch, at time.Time) (*Mentor, error)
}

// SubjectStore manages subjects. Replace returns ErrNotFound for an unknown id.
type SubjectStore interface {
	Create(ctx context.Context, s *Subject) error
	Find(ctx context.Context, id primitive.ObjectID) (*Subject, error)
	List(ctx context.Context) ([]*Subject, error)
	Replace(ctx context.Context, s *Subject) error
}

// QuestionStore manages questions. Replace returns ErrNotFound for an unknown id.
type QuestionStore interface {
	Create(ctx context.Context, q *Question) error
	Find(ctx context.Context, id primitive.ObjectID) (*Question, error)
	List(ctx context.Context) ([]*Question, error)
	Replace(ctx context.Context, q *Question) error
}

// AnswerKey identifies an answer.
type AnswerKey struct {
	Mentor   primitive.ObjectID
	Question primitive.ObjectID
}

// AnswerPatch carries optional answer field updates.
type AnswerPatch struct {
	Transcript *string
	Status     *Status
	Media      *[]Media
}

// AnswerStore manages answers.
type AnswerStore interface {
	ListByMentor(ctx context.Context, mentorID primitive.ObjectID) ([]*Answer, error)
	// Upsert applies patch to the answer at key. When none exists one is created from the
	// patch with status NONE unless the patch sets it; created reports which happened.
	Upsert(ctx context.Context, key AnswerKey, patch AnswerPatch, at time.Time) (ans *Answer, created bool, err error)
}

package mentor

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
)

// Subjects and questions are readable by anyone; writes need a content-managing role.

// Subject returns a subject by id.
func (s *Service) Subject(ctx context.Context, id primitive.ObjectID) (*Subject, error) {
	return s.store.Subjects(ctx).Find(ctx, id)
}

// Subjects lists all subjects.
func (s *Service) Subjects(ctx context.Context) ([]*Subject, error) {
	return s.store.Subjects(ctx).List(ctx)
}

// Question returns a question by id.
func (s *Service) Question(ctx context.Context, id primitive.ObjectID) (*Question, error) {
	return s.store.Questions(ctx).Find(ctx, id)
}

// Questions lists all questions.
func (s *Service) Questions(ctx context.Context) ([]*Question, error) {
	return s.store.Questions(ctx).List(ctx)
}

// SubjectInput is the full editable content of a subject.
type SubjectInput struct {
	Name        string
	Description string
	IsRequired  bool
	Categories  []Category
	Topics      []Topic
	Questions   []SubjectQuestion
}

// SaveSubject creates a subject when id is nil and replaces subject id otherwise.
// Replacing an unknown id is ErrNotFound; ids are never invented for bad input.
func (s *Service) SaveSubject(ctx context.Context, actor *auth.User, id *primitive.ObjectID, in SubjectInput) (*Subject, error) {
	if !auth.CanEditContent(actor) {
		return nil, auth.Deny(actor)
	}
	if err := s.validateSubject(ctx, &in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	subj := &Subject{
		Name:        in.Name,
		Description: in.Description,
		IsRequired:  in.IsRequired,
		Categories:  nonNil(in.Categories),
		Topics:      nonNil(in.Topics),
		Questions:   nonNil(in.Questions),
		UpdatedAt:   now,
	}
	store := s.store.Subjects(ctx)
	if id == nil {
		subj.ID = primitive.NewObjectID()
		subj.CreatedAt = now
		if err := store.Create(ctx, subj); err != nil {
			return nil, err
		}
		return subj, nil
	}
	existing, err := store.Find(ctx, *id)
	if err != nil {
		return nil, err
	}
	subj.ID = existing.ID
	subj.CreatedAt = existing.CreatedAt
	if err := store.Replace(ctx, subj); err != nil {
		return nil, err
	}
	return subj, nil
}

func (s *Service) validateSubject(ctx context.Context, in *SubjectInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}
	categories := make(map[string]struct{}, len(in.Categories))
	for _, c := range in.Categories {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("%w: category id is required", ErrInvalidInput)
		}
		categories[c.ID] = struct{}{}
	}
	topics := make(map[string]struct{}, len(in.Topics))
	for _, t := range in.Topics {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: topic id is required", ErrInvalidInput)
		}
		topics[t.ID] = struct{}{}
	}
	seen := make(map[primitive.ObjectID]struct{}, len(in.Questions))
	for i, sq := range in.Questions {
		if _, dup := seen[sq.Question]; dup {
			return fmt.Errorf("%w: question %s listed twice", ErrInvalidInput, sq.Question.Hex())
		}
		seen[sq.Question] = struct{}{}
		if sq.Category != "" {
			if _, ok := categories[sq.Category]; !ok {
				return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, sq.Category)
			}
		}
		for _, t := range sq.Topics {
			if _, ok := topics[t]; !ok {
				return fmt.Errorf("%w: unknown topic %q", ErrInvalidInput, t)
			}
		}
		if sq.Topics == nil {
			in.Questions[i].Topics = []string{}
		}
		if _, err := s.store.Questions(ctx).Find(ctx, sq.Question); err != nil {
			return fmt.Errorf("question %s: %w", sq.Question.Hex(), err)
		}
	}
	return nil
}

// QuestionInput is the full editable content of a question.
type QuestionInput struct {
	Question       string
	Type           QuestionType
	Name           string
	Paraphrases    []string
	Mentor         *primitive.ObjectID
	MentorType     Type
	MinVideoLength *float64
}

// SaveQuestion creates a question when id is nil and replaces question id otherwise.
func (s *Service) SaveQuestion(ctx context.Context, actor *auth.User, id *primitive.ObjectID, in QuestionInput) (*Question, error) {
	if !auth.CanEditContent(actor) {
		return nil, auth.Deny(actor)
	}
	text := strings.TrimSpace(in.Question)
	if text == "" {
		return nil, fmt.Errorf("%w: question text is required", ErrInvalidInput)
	}
	qtype := in.Type
	if qtype == "" {
		qtype = QuestionTypeQuestion
	}
	if qtype != QuestionTypeQuestion && qtype != QuestionTypeUtterance {
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, in.Type)
	}
	if in.MinVideoLength != nil && *in.MinVideoLength < 0 {
		return nil, fmt.Errorf("%w: minVideoLength must not be negative", ErrInvalidInput)
	}
	if in.Mentor != nil {
		if _, err := s.store.Mentors(ctx).Find(ctx, *in.Mentor); err != nil {
			return nil, fmt.Errorf("mentor %s: %w", in.Mentor.Hex(), err)
		}
	}
	now := s.now().UTC()
	q := &Question{
		Question:       text,
		Type:           qtype,
		Name:           strings.TrimSpace(in.Name),
		Paraphrases:    nonNil(in.Paraphrases),
		Mentor:         in.Mentor,
		MentorType:     in.MentorType,
		MinVideoLength: in.MinVideoLength,
		UpdatedAt:      now,
	}
	store := s.store.Questions(ctx)
	if id == nil {
		q.ID = primitive.NewObjectID()
		q.CreatedAt = now
		if err := store.Create(ctx, q); err != nil {
			return nil, err
		}
		return q, nil
	}
	existing, err := store.Find(ctx, *id)
	if err != nil {
		return nil, err
	}
	q.ID = existing.ID
	q.CreatedAt = existing.CreatedAt
	if err := store.Replace(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

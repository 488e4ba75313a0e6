// Package mentor holds the content side of the platform: mentors, the subjects and
// questions they answer, and their recorded answers.
package mentor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
)

var (
	ErrNotFound     = errors.New("mentor: not found")
	ErrConflict     = errors.New("mentor: already exists")
	ErrInvalidInput = errors.New("mentor: invalid input")
)

// Type is how a mentor answers.
type Type string

const (
	TypeVideo Type = "VIDEO"
	TypeChat  Type = "CHAT"
)

// ParseType validates raw.
func ParseType(raw string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(raw)))
	if t != TypeVideo && t != TypeChat {
		return "", fmt.Errorf("%w: unknown mentor type %q", ErrInvalidInput, raw)
	}
	return t, nil
}

// Mentor is the content owner whose answers are served to end users. Each user owns
// exactly one.
type Mentor struct {
	ID             primitive.ObjectID   `bson:"_id"`
	User           primitive.ObjectID   `bson:"user"`
	Name           string               `bson:"name"`
	FirstName      string               `bson:"firstName"`
	Title          string               `bson:"title"`
	MentorType     Type                 `bson:"mentorType"`
	IsPrivate      bool                 `bson:"isPrivate"`
	OrgPermissions []auth.OrgPermission `bson:"orgPermissions"`
	Subjects       []primitive.ObjectID `bson:"subjects"`
	DefaultSubject *primitive.ObjectID  `bson:"defaultSubject,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt"`
}

// Access projects the fields permission checks look at.
func (m *Mentor) Access() auth.MentorAccess {
	return auth.MentorAccess{Owner: m.User, IsPrivate: m.IsPrivate, OrgPermissions: m.OrgPermissions}
}

// Category groups questions inside a subject.
type Category struct {
	ID          string `bson:"id"`
	Name        string `bson:"name"`
	Description string `bson:"description"`
}

// Topic tags questions across categories.
type Topic struct {
	ID          string `bson:"id"`
	Name        string `bson:"name"`
	Description string `bson:"description"`
}

// SubjectQuestion places a question in a subject.
type SubjectQuestion struct {
	Question primitive.ObjectID `bson:"question"`
	Category string             `bson:"category,omitempty"`
	Topics   []string           `bson:"topics"`
}

// Subject is a named set of questions.
type Subject struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	IsRequired  bool               `bson:"isRequired"`
	Categories  []Category         `bson:"categories"`
	Topics      []Topic            `bson:"topics"`
	Questions   []SubjectQuestion  `bson:"questions"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// QuestionType separates real questions from filler utterances (greeting, idle, ...).
type QuestionType string

const (
	QuestionTypeQuestion  QuestionType = "QUESTION"
	QuestionTypeUtterance QuestionType = "UTTERANCE"
)

// Question is something a mentor records an answer for.
type Question struct {
	ID             primitive.ObjectID  `bson:"_id"`
	Question       string              `bson:"question"`
	Type           QuestionType        `bson:"type"`
	Name           string              `bson:"name,omitempty"`
	Paraphrases    []string            `bson:"paraphrases"`
	Mentor         *primitive.ObjectID `bson:"mentor,omitempty"`
	MentorType     Type                `bson:"mentorType,omitempty"`
	MinVideoLength *float64            `bson:"minVideoLength,omitempty"`
	CreatedAt      time.Time           `bson:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt"`
}

// Status tracks how far an answer got.
type Status string

const (
	StatusNone       Status = "NONE"
	StatusIncomplete Status = "INCOMPLETE"
	StatusComplete   Status = "COMPLETE"
)

// ParseStatus validates raw.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusNone, StatusIncomplete, StatusComplete:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown answer status %q", ErrInvalidInput, raw)
}

// Media is a recorded asset of an answer.
type Media struct {
	Type string `bson:"type"`
	Tag  string `bson:"tag"`
	URL  string `bson:"url"`
}

// Answer is a mentor's response to one question. (Mentor, Question) is unique.
type Answer struct {
	ID         primitive.ObjectID `bson:"_id"`
	Mentor     primitive.ObjectID `bson:"mentor"`
	Question   primitive.ObjectID `bson:"question"`
	Transcript string             `bson:"transcript"`
	Status     Status             `bson:"status"`
	Media      []Media            `bson:"media"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

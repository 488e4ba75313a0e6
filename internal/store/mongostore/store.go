// Package mongostore implements the auth and mentor stores on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/mentor"
)

const (
	colUsers         = "users"
	colOrganizations = "organizations"
	colRefreshTokens = "refreshtokens"
	colMentors       = "mentors"
	colSubjects      = "subjects"
	colQuestions     = "questions"
	colAnswers       = "answers"
)

// Store wraps a database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ auth.Store   = (*Store)(nil)
	_ mentor.Store = (*Store)(nil)
)

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if uri == "" || database == "" {
		return nil, errors.New("mongo uri and database are required")
	}
	opts := options.Client().ApplyURI(uri).SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := New(client.Database(database))
	s.client = client
	return s, nil
}

// New wraps an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db, client: db.Client()}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *Store) Users(context.Context) auth.UserStore {
	return userStore{c: s.db.Collection(colUsers)}
}

func (s *Store) Organizations(context.Context) auth.OrganizationStore {
	return orgStore{c: s.db.Collection(colOrganizations)}
}

func (s *Store) RefreshTokens(context.Context) auth.RefreshTokenStore {
	return tokenStore{c: s.db.Collection(colRefreshTokens)}
}

func (s *Store) Mentors(context.Context) mentor.MentorStore {
	return mentorStore{c: s.db.Collection(colMentors)}
}

func (s *Store) Subjects(context.Context) mentor.SubjectStore {
	return subjectStore{c: s.db.Collection(colSubjects)}
}

func (s *Store) Questions(context.Context) mentor.QuestionStore {
	return questionStore{c: s.db.Collection(colQuestions)}
}

func (s *Store) Answers(context.Context) mentor.AnswerStore {
	return answerStore{c: s.db.Collection(colAnswers)}
}

// EnsureIndexes creates the unique and TTL indexes the stores rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	sparseUnique := options.Index().SetUnique(true).SetSparse(true)
	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: sparseUnique},
			{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: sparseUnique},
		},
		colOrganizations: {
			{Keys: bson.D{{Key: "subdomain", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "members.user", Value: 1}}},
		},
		colRefreshTokens: {
			{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			// Expired records linger for a month so reuse of an old value is still detected.
			{Keys: bson.D{{Key: "expires", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(30 * 24 * 3600)},
		},
		colMentors: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: unique},
		},
		colAnswers: {
			{Keys: bson.D{{Key: "mentor", Value: 1}, {Key: "question", Value: 1}}, Options: unique},
		},
	}
	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// mapErr translates driver errors into the store sentinel errors of the calling package.
func mapErr(err, notFound, conflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", conflict, err)
	default:
		return err
	}
}

func authErr(err error) error   { return mapErr(err, auth.ErrNotFound, auth.ErrConflict) }
func mentorErr(err error) error { return mapErr(err, mentor.ErrNotFound, mentor.ErrConflict) }

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]*T, error) {
	defer cur.Close(ctx)
	var out []*T
	for cur.Next(ctx) {
		v := new(T)
		if err := cur.Decode(v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter any) (*T, error) {
	v := new(T)
	if err := c.FindOne(ctx, filter).Decode(v); err != nil {
		return nil, err
	}
	return v, nil
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func findOneAndUpdate[T any](ctx context.Context, c *mongo.Collection, filter, update any) (*T, error) {
	v := new(T)
	if err := c.FindOneAndUpdate(ctx, filter, update, afterUpdate()).Decode(v); err != nil {
		return nil, err
	}
	return v, nil
}

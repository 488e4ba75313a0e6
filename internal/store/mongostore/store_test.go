package mongostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/mentor"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func TestClaimForRotation(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mt.Run("claimed", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		err := New(mt.DB).RefreshTokens(ctx).ClaimForRotation(ctx, primitive.NewObjectID(), primitive.NewObjectID(), now)
		require.NoError(mt, err)
	})

	mt.Run("already rotated", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		err := New(mt.DB).RefreshTokens(ctx).ClaimForRotation(ctx, primitive.NewObjectID(), primitive.NewObjectID(), now)
		require.ErrorIs(mt, err, auth.ErrNotFound)
	})
}

func TestFindByHash(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("found", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		user := primitive.NewObjectID()
		expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.refreshtokens", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "user", Value: user},
			{Key: "tokenHash", Value: "abc"},
			{Key: "expires", Value: expires},
		}))
		tok, err := New(mt.DB).RefreshTokens(ctx).FindByHash(ctx, "abc")
		require.NoError(mt, err)
		assert.Equal(mt, id, tok.ID)
		assert.Equal(mt, user, tok.User)
		assert.Nil(mt, tok.RevokedAt)
		assert.Nil(mt, tok.ReplacedBy)
		assert.True(mt, tok.Expires.Equal(expires))
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.refreshtokens", mtest.FirstBatch))
		_, err := New(mt.DB).RefreshTokens(ctx).FindByHash(ctx, "nope")
		require.ErrorIs(mt, err, auth.ErrNotFound)
	})
}

func TestCreateUserDuplicate(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: test.users index: email_1",
		}))
		err := New(mt.DB).Users(ctx).Create(ctx, &auth.User{ID: primitive.NewObjectID(), Email: "a@example.org", Role: auth.RoleUser})
		require.ErrorIs(mt, err, auth.ErrConflict)
	})
}

func TestReplaceMissingSubject(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		err := New(mt.DB).Subjects(ctx).Replace(ctx, &mentor.Subject{ID: primitive.NewObjectID(), Name: "x"})
		require.True(mt, errors.Is(err, mentor.ErrNotFound), "got %v", err)
	})
}

func TestAnswerUpsertReportsCreation(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()
	key := mentor.AnswerKey{Mentor: primitive.NewObjectID(), Question: primitive.NewObjectID()}
	answerDoc := bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "mentor", Value: key.Mentor},
		{Key: "question", Value: key.Question},
		{Key: "transcript", Value: "hello"},
		{Key: "status", Value: "NONE"},
	}
	transcript := "hello"

	mt.Run("created", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 0},
				bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: primitive.NewObjectID()}}}},
			),
			mtest.CreateCursorResponse(0, "test.answers", mtest.FirstBatch, answerDoc),
		)
		ans, created, err := New(mt.DB).Answers(ctx).Upsert(ctx, key, mentor.AnswerPatch{Transcript: &transcript}, time.Now())
		require.NoError(mt, err)
		assert.True(mt, created)
		assert.Equal(mt, "hello", ans.Transcript)
		assert.Equal(mt, mentor.StatusNone, ans.Status)
	})

	mt.Run("updated", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 1},
			),
			mtest.CreateCursorResponse(0, "test.answers", mtest.FirstBatch, answerDoc),
		)
		_, created, err := New(mt.DB).Answers(ctx).Upsert(ctx, key, mentor.AnswerPatch{Transcript: &transcript}, time.Now())
		require.NoError(mt, err)
		assert.False(mt, created)
	})
}

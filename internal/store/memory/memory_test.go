package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/mentor"
	"mentorgraph.org/internal/store/memory"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestClaimForRotationHasOneWinner(t *testing.T) {
	ctx := context.Background()
	tokens := memory.New().RefreshTokens(ctx)
	tok := &auth.RefreshToken{ID: primitive.NewObjectID(), User: primitive.NewObjectID(), TokenHash: "h", Expires: t0.Add(time.Hour), CreatedAt: t0}
	require.NoError(t, tokens.Create(ctx, tok))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tokens.ClaimForRotation(ctx, tok.ID, primitive.NewObjectID(), t0)
			switch {
			case err == nil:
				wins.Add(1)
			case !errors.Is(err, auth.ErrNotFound):
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())

	got, err := tokens.Find(ctx, tok.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ReplacedBy)
	assert.False(t, got.Active(t0))
}

func TestClaimRejectsExpiredAndRevoked(t *testing.T) {
	ctx := context.Background()
	tokens := memory.New().RefreshTokens(ctx)
	expired := &auth.RefreshToken{ID: primitive.NewObjectID(), TokenHash: "a", Expires: t0}
	revoked := &auth.RefreshToken{ID: primitive.NewObjectID(), TokenHash: "b", Expires: t0.Add(time.Hour)}
	require.NoError(t, tokens.Create(ctx, expired))
	require.NoError(t, tokens.Create(ctx, revoked))
	require.NoError(t, tokens.Revoke(ctx, revoked.ID, t0))

	assert.ErrorIs(t, tokens.ClaimForRotation(ctx, expired.ID, primitive.NewObjectID(), t0), auth.ErrNotFound)
	assert.ErrorIs(t, tokens.ClaimForRotation(ctx, revoked.ID, primitive.NewObjectID(), t0), auth.ErrNotFound)
	assert.ErrorIs(t, tokens.Revoke(ctx, revoked.ID, t0), auth.ErrNotFound)
	assert.ErrorIs(t, tokens.Create(ctx, &auth.RefreshToken{ID: primitive.NewObjectID(), TokenHash: "a"}), auth.ErrConflict)
}

func TestUserEmailIsUniqueIgnoringCase(t *testing.T) {
	ctx := context.Background()
	users := memory.New().Users(ctx)
	require.NoError(t, users.Create(ctx, &auth.User{ID: primitive.NewObjectID(), Email: "ada@example.org"}))
	err := users.Create(ctx, &auth.User{ID: primitive.NewObjectID(), Email: "ADA@example.org"})
	assert.ErrorIs(t, err, auth.ErrConflict)

	got, err := users.FindByEmail(ctx, "ada@example.org")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", got.Email)
}

func TestOrganizationMembers(t *testing.T) {
	ctx := context.Background()
	orgs := memory.New().Organizations(ctx)
	org := &auth.Organization{ID: primitive.NewObjectID(), Name: "USC", Subdomain: "usc"}
	require.NoError(t, orgs.Create(ctx, org))
	assert.ErrorIs(t, orgs.Create(ctx, &auth.Organization{ID: primitive.NewObjectID(), Subdomain: "usc"}), auth.ErrConflict)

	member := primitive.NewObjectID()
	_, created, err := orgs.UpsertMember(ctx, org.ID, auth.OrgMember{User: member, Role: auth.RoleUser}, t0)
	require.NoError(t, err)
	assert.True(t, created)
	updated, created, err := orgs.UpsertMember(ctx, org.ID, auth.OrgMember{User: member, Role: auth.RoleAdmin}, t0)
	require.NoError(t, err)
	assert.False(t, created)
	require.Len(t, updated.Members, 1)
	assert.Equal(t, auth.RoleAdmin, updated.Members[0].Role)

	list, err := orgs.ListForMember(ctx, member)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	removed, err := orgs.RemoveMember(ctx, org.ID, member, t0)
	require.NoError(t, err)
	assert.Empty(t, removed.Members)
}

func TestAnswerUpsertReportsCreation(t *testing.T) {
	ctx := context.Background()
	answers := memory.New().Answers(ctx)
	key := mentor.AnswerKey{Mentor: primitive.NewObjectID(), Question: primitive.NewObjectID()}
	text := "hello"

	a, created, err := answers.Upsert(ctx, key, mentor.AnswerPatch{Transcript: &text}, t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "hello", a.Transcript)

	status := mentor.StatusComplete
	a, created, err = answers.Upsert(ctx, key, mentor.AnswerPatch{Status: &status}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "hello", a.Transcript)
	assert.Equal(t, mentor.StatusComplete, a.Status)

	list, err := answers.ListByMentor(ctx, key.Mentor)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

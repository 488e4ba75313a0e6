package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/audit"
	"mentorgraph.org/internal/obs"
)

const (
	// 160 bits.
	refreshValueBytes = 20
	maxChainHops      = 64
)

func generateRefreshValue() (string, error) {
	buf := make([]byte, refreshValueBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashRefreshValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func (s *Service) newRefreshRecord(userID, id primitive.ObjectID, now time.Time) (string, *RefreshToken, error) {
	value, err := generateRefreshValue()
	if err != nil {
		return "", nil, err
	}
	rec := &RefreshToken{
		ID:        id,
		User:      userID,
		TokenHash: hashRefreshValue(value),
		Expires:   now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	return value, rec, nil
}

// IssueRefreshToken creates a new active refresh token for userID and returns its value.
func (s *Service) IssueRefreshToken(ctx context.Context, userID primitive.ObjectID) (string, *RefreshToken, error) {
	value, rec, err := s.newRefreshRecord(userID, primitive.NewObjectID(), s.now().UTC())
	if err != nil {
		return "", nil, err
	}
	if err := s.store.RefreshTokens(ctx).Create(ctx, rec); err != nil {
		return "", nil, fmt.Errorf("store refresh token: %w", err)
	}
	return value, rec, nil
}

// Refresh redeems a refresh token value: the presented record is marked as replaced and a
// new record plus a short access token are issued. A value can be redeemed at most once;
// presenting a superseded value revokes the newest token of its chain.
func (s *Service) Refresh(ctx context.Context, value string) (Session, error) {
	sess, err := s.redeem(ctx, value)
	switch {
	case err == nil:
		obs.AuthEvent("refresh", "ok")
	case errors.Is(err, ErrInvalidToken):
		obs.AuthEvent("refresh", "rejected")
	default:
		obs.AuthEvent("refresh", "error")
	}
	return sess, err
}

func (s *Service) redeem(ctx context.Context, value string) (Session, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Session{}, ErrInvalidToken
	}
	tokens := s.store.RefreshTokens(ctx)
	rec, err := tokens.FindByHash(ctx, hashRefreshValue(value))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidToken
		}
		return Session{}, err
	}
	now := s.now().UTC()
	if rec.RevokedAt != nil || !now.Before(rec.Expires) {
		return Session{}, ErrInvalidToken
	}
	if rec.ReplacedBy != nil {
		s.handleReuse(ctx, rec, now)
		return Session{}, ErrInvalidToken
	}

	user, err := s.store.Users(ctx).Find(ctx, rec.User)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidToken
		}
		return Session{}, err
	}
	if user.IsDisabled {
		return Session{}, ErrInvalidToken
	}

	// The replacement exists before the old record points at it, so a failed insert leaves
	// the presented value redeemable.
	next, nextRec, err := s.newRefreshRecord(user.ID, primitive.NewObjectID(), now)
	if err != nil {
		return Session{}, err
	}
	if err := tokens.Create(ctx, nextRec); err != nil {
		return Session{}, fmt.Errorf("store rotated refresh token: %w", err)
	}
	if err := tokens.ClaimForRotation(ctx, rec.ID, nextRec.ID, now); err != nil {
		if rerr := tokens.Revoke(ctx, nextRec.ID, now); rerr != nil {
			obs.LoggerFromContext(ctx).WithError(rerr).Warn("revoke unclaimed refresh token failed")
		}
		if errors.Is(err, ErrNotFound) {
			// Lost the race against a concurrent redeem of the same value.
			return Session{}, ErrInvalidToken
		}
		return Session{}, err
	}
	mentorIDs, err := s.mentorIDs(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	access, err := s.tokens.IssueShort(user, mentorIDs)
	if err != nil {
		return Session{}, err
	}
	_ = audit.LogEvent(obs.WithUserID(ctx, user.ID.Hex()), "auth.refresh", map[string]any{
		"token": rec.ID.Hex(),
		"next":  nextRec.ID.Hex(),
	})
	return Session{User: user, Access: access, RefreshToken: next, RefreshExpiresAt: nextRec.Expires}, nil
}

// handleReuse walks the rotation chain from rec to its newest record and revokes it.
func (s *Service) handleReuse(ctx context.Context, rec *RefreshToken, now time.Time) {
	tokens := s.store.RefreshTokens(ctx)
	log := obs.LoggerFromContext(ctx).WithField("token", rec.ID.Hex())
	tip := rec
	for hops := 0; tip.ReplacedBy != nil && hops < maxChainHops; hops++ {
		next, err := tokens.Find(ctx, *tip.ReplacedBy)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				log.WithError(err).Warn("refresh chain lookup failed")
			}
			break
		}
		tip = next
	}
	revoked := false
	if tip.ID != rec.ID && tip.RevokedAt == nil {
		if err := tokens.Revoke(ctx, tip.ID, now); err == nil {
			revoked = true
		} else if !errors.Is(err, ErrNotFound) {
			log.WithError(err).Warn("revoke refresh chain tip failed")
		}
	}
	obs.AuthEvent("refresh", "reuse")
	_ = audit.LogEvent(obs.WithUserID(ctx, rec.User.Hex()), "auth.refresh_reuse", map[string]any{
		"token":       rec.ID.Hex(),
		"tip":         tip.ID.Hex(),
		"tip_revoked": revoked,
	})
}

// Revoke marks the refresh token holding value as revoked. Unknown or already inactive
// values return ErrInvalidToken.
func (s *Service) Revoke(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrInvalidToken
	}
	tokens := s.store.RefreshTokens(ctx)
	rec, err := tokens.FindByHash(ctx, hashRefreshValue(value))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := tokens.Revoke(ctx, rec.ID, s.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

// Logout revokes the presented refresh token. Logging out with a token that is already
// invalid succeeds.
func (s *Service) Logout(ctx context.Context, value string) error {
	if err := s.Revoke(ctx, value); err != nil && !errors.Is(err, ErrInvalidToken) {
		return err
	}
	obs.AuthEvent("logout", "ok")
	_ = audit.LogEvent(ctx, "auth.logout", nil)
	return nil
}

// RevokeAllForUser revokes every refresh token of userID that is not revoked yet.
func (s *Service) RevokeAllForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.RefreshTokens(ctx).RevokeAllForUser(ctx, userID, s.now().UTC())
}

package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentorgraph.org/internal/auth"
)

type userStore struct{ c *mongo.Collection }

func (u userStore) Create(ctx context.Context, user *auth.User) error {
	_, err := u.c.InsertOne(ctx, user)
	return authErr(err)
}

func (u userStore) Find(ctx context.Context, id primitive.ObjectID) (*auth.User, error) {
	user, err := findOne[auth.User](ctx, u.c, bson.M{"_id": id})
	return user, authErr(err)
}

func (u userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, err := findOne[auth.User](ctx, u.c, bson.M{"email": email})
	return user, authErr(err)
}

func (u userStore) FindByGoogleID(ctx context.Context, googleID string) (*auth.User, error) {
	user, err := findOne[auth.User](ctx, u.c, bson.M{"googleId": googleID})
	return user, authErr(err)
}

func (u userStore) List(ctx context.Context) ([]*auth.User, error) {
	cur, err := u.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[auth.User](ctx, cur)
}

func (u userStore) set(ctx context.Context, id primitive.ObjectID, fields bson.M) (*auth.User, error) {
	user, err := findOneAndUpdate[auth.User](ctx, u.c, bson.M{"_id": id}, bson.M{"$set": fields})
	return user, authErr(err)
}

func (u userStore) SetRole(ctx context.Context, id primitive.ObjectID, role auth.Role) (*auth.User, error) {
	return u.set(ctx, id, bson.M{"userRole": role})
}

func (u userStore) SetDisabled(ctx context.Context, id primitive.ObjectID, disabled bool) (*auth.User, error) {
	return u.set(ctx, id, bson.M{"isDisabled": disabled})
}

func (u userStore) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error {
	_, err := u.set(ctx, id, bson.M{"googleId": googleID})
	return err
}

func (u userStore) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := u.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLoginAt": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}
	return nil
}

type orgStore struct{ c *mongo.Collection }

func (o orgStore) Create(ctx context.Context, org *auth.Organization) error {
	_, err := o.c.InsertOne(ctx, org)
	return authErr(err)
}

func (o orgStore) Find(ctx context.Context, id primitive.ObjectID) (*auth.Organization, error) {
	org, err := findOne[auth.Organization](ctx, o.c, bson.M{"_id": id})
	return org, authErr(err)
}

func (o orgStore) FindBySubdomain(ctx context.Context, subdomain string) (*auth.Organization, error) {
	org, err := findOne[auth.Organization](ctx, o.c, bson.M{"subdomain": subdomain})
	return org, authErr(err)
}

func (o orgStore) list(ctx context.Context, filter bson.M) ([]*auth.Organization, error) {
	cur, err := o.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[auth.Organization](ctx, cur)
}

func (o orgStore) List(ctx context.Context) ([]*auth.Organization, error) {
	return o.list(ctx, bson.M{})
}

func (o orgStore) ListForMember(ctx context.Context, userID primitive.ObjectID) ([]*auth.Organization, error) {
	return o.list(ctx, bson.M{"members.user": userID})
}

func (o orgStore) Update(ctx context.Context, id primitive.ObjectID, patch auth.OrganizationPatch, at time.Time) (*auth.Organization, error) {
	set := bson.M{"updatedAt": at}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Subdomain != nil {
		set["subdomain"] = *patch.Subdomain
	}
	if patch.IsPrivate != nil {
		set["isPrivate"] = *patch.IsPrivate
	}
	org, err := findOneAndUpdate[auth.Organization](ctx, o.c, bson.M{"_id": id}, bson.M{"$set": set})
	return org, authErr(err)
}

// UpsertMember first updates the role of an existing member and otherwise pushes a new
// member entry guarded by $ne, so two concurrent calls cannot add the user twice.
func (o orgStore) UpsertMember(ctx context.Context, id primitive.ObjectID, member auth.OrgMember, at time.Time) (*auth.Organization, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		org, err := findOneAndUpdate[auth.Organization](ctx, o.c,
			bson.M{"_id": id, "members.user": member.User},
			bson.M{"$set": bson.M{"members.$.role": member.Role, "updatedAt": at}})
		if err == nil {
			return org, false, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, err
		}
		org, err = findOneAndUpdate[auth.Organization](ctx, o.c,
			bson.M{"_id": id, "members.user": bson.M{"$ne": member.User}},
			bson.M{"$push": bson.M{"members": member}, "$set": bson.M{"updatedAt": at}})
		if err == nil {
			return org, true, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, err
		}
		if _, err := o.Find(ctx, id); err != nil {
			return nil, false, err
		}
	}
	return nil, false, auth.ErrConflict
}

func (o orgStore) RemoveMember(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (*auth.Organization, error) {
	org, err := findOneAndUpdate[auth.Organization](ctx, o.c, bson.M{"_id": id},
		bson.M{"$pull": bson.M{"members": bson.M{"user": userID}}, "$set": bson.M{"updatedAt": at}})
	return org, authErr(err)
}

type tokenStore struct{ c *mongo.Collection }

func (t tokenStore) Create(ctx context.Context, tok *auth.RefreshToken) error {
	_, err := t.c.InsertOne(ctx, tok)
	return authErr(err)
}

func (t tokenStore) Find(ctx context.Context, id primitive.ObjectID) (*auth.RefreshToken, error) {
	tok, err := findOne[auth.RefreshToken](ctx, t.c, bson.M{"_id": id})
	return tok, authErr(err)
}

func (t tokenStore) FindByHash(ctx context.Context, hash string) (*auth.RefreshToken, error) {
	tok, err := findOne[auth.RefreshToken](ctx, t.c, bson.M{"tokenHash": hash})
	return tok, authErr(err)
}

// ClaimForRotation is a single conditional update; a null filter value also matches a
// missing field.
func (t tokenStore) ClaimForRotation(ctx context.Context, id, replacement primitive.ObjectID, now time.Time) error {
	res, err := t.c.UpdateOne(ctx,
		bson.M{
			"_id":        id,
			"revokedAt":  nil,
			"replacedBy": nil,
			"expires":    bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"replacedBy": replacement}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (t tokenStore) Revoke(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	res, err := t.c.UpdateOne(ctx,
		bson.M{"_id": id, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (t tokenStore) RevokeAllForUser(ctx context.Context, userID primitive.ObjectID, now time.Time) (int64, error) {
	res, err := t.c.UpdateMany(ctx,
		bson.M{"user": userID, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": now}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentorgraph.org/internal/mentor"
)

type mentorStore struct{ c *mongo.Collection }

func (m mentorStore) Create(ctx context.Context, mt *mentor.Mentor) error {
	_, err := m.c.InsertOne(ctx, mt)
	return mentorErr(err)
}

func (m mentorStore) Find(ctx context.Context, id primitive.ObjectID) (*mentor.Mentor, error) {
	mt, err := findOne[mentor.Mentor](ctx, m.c, bson.M{"_id": id})
	return mt, mentorErr(err)
}

func (m mentorStore) FindByUser(ctx context.Context, userID primitive.ObjectID) (*mentor.Mentor, error) {
	mt, err := findOne[mentor.Mentor](ctx, m.c, bson.M{"user": userID})
	return mt, mentorErr(err)
}

func (m mentorStore) List(ctx context.Context) ([]*mentor.Mentor, error) {
	cur, err := m.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[mentor.Mentor](ctx, cur)
}

func (m mentorStore) Update(ctx context.Context, id primitive.ObjectID, p mentor.MentorPatch, at time.Time) (*mentor.Mentor, error) {
	set := bson.M{"updatedAt": at}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.FirstName != nil {
		set["firstName"] = *p.FirstName
	}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.MentorType != nil {
		set["mentorType"] = *p.MentorType
	}
	if p.IsPrivate != nil {
		set["isPrivate"] = *p.IsPrivate
	}
	if p.OrgPermissions != nil {
		set["orgPermissions"] = *p.OrgPermissions
	}
	if p.Subjects != nil {
		set["subjects"] = *p.Subjects
	}
	update := bson.M{"$set": set}
	switch {
	case p.ClearDefaultSubject:
		update["$unset"] = bson.M{"defaultSubject": ""}
	case p.DefaultSubject != nil:
		set["defaultSubject"] = *p.DefaultSubject
	}
	mt, err := findOneAndUpdate[mentor.Mentor](ctx, m.c, bson.M{"_id": id}, update)
	return mt, mentorErr(err)
}

type subjectStore struct{ c *mongo.Collection }

func (s subjectStore) Create(ctx context.Context, subj *mentor.Subject) error {
	_, err := s.c.InsertOne(ctx, subj)
	return mentorErr(err)
}

func (s subjectStore) Find(ctx context.Context, id primitive.ObjectID) (*mentor.Subject, error) {
	subj, err := findOne[mentor.Subject](ctx, s.c, bson.M{"_id": id})
	return subj, mentorErr(err)
}

func (s subjectStore) List(ctx context.Context) ([]*mentor.Subject, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[mentor.Subject](ctx, cur)
}

func (s subjectStore) Replace(ctx context.Context, subj *mentor.Subject) error {
	return replace(ctx, s.c, subj.ID, subj)
}

type questionStore struct{ c *mongo.Collection }

func (q questionStore) Create(ctx context.Context, qn *mentor.Question) error {
	_, err := q.c.InsertOne(ctx, qn)
	return mentorErr(err)
}

func (q questionStore) Find(ctx context.Context, id primitive.ObjectID) (*mentor.Question, error) {
	qn, err := findOne[mentor.Question](ctx, q.c, bson.M{"_id": id})
	return qn, mentorErr(err)
}

func (q questionStore) List(ctx context.Context) ([]*mentor.Question, error) {
	cur, err := q.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[mentor.Question](ctx, cur)
}

func (q questionStore) Replace(ctx context.Context, qn *mentor.Question) error {
	return replace(ctx, q.c, qn.ID, qn)
}

func replace(ctx context.Context, c *mongo.Collection, id primitive.ObjectID, doc any) error {
	res, err := c.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mentorErr(err)
	}
	if res.MatchedCount == 0 {
		return mentor.ErrNotFound
	}
	return nil
}

type answerStore struct{ c *mongo.Collection }

func (a answerStore) ListByMentor(ctx context.Context, mentorID primitive.ObjectID) ([]*mentor.Answer, error) {
	cur, err := a.c.Find(ctx, bson.M{"mentor": mentorID}, options.Find().SetSort(bson.D{{Key: "question", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[mentor.Answer](ctx, cur)
}

// Upsert is one update with upsert enabled; UpsertedCount tells creation from update.
// Defaults for fields the patch leaves out go through $setOnInsert.
func (a answerStore) Upsert(ctx context.Context, key mentor.AnswerKey, p mentor.AnswerPatch, at time.Time) (*mentor.Answer, bool, error) {
	filter := bson.M{"mentor": key.Mentor, "question": key.Question}
	set := bson.M{"updatedAt": at}
	onInsert := bson.M{"_id": primitive.NewObjectID(), "createdAt": at}
	if p.Transcript != nil {
		set["transcript"] = *p.Transcript
	} else {
		onInsert["transcript"] = ""
	}
	if p.Status != nil {
		set["status"] = *p.Status
	} else {
		onInsert["status"] = mentor.StatusNone
	}
	if p.Media != nil {
		set["media"] = *p.Media
	} else {
		onInsert["media"] = []mentor.Media{}
	}
	update := bson.M{"$set": set, "$setOnInsert": onInsert}

	var (
		res *mongo.UpdateResult
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		res, err = a.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		// Two concurrent inserts race on the unique (mentor, question) index; the loser
		// retries as an update.
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return nil, false, mentorErr(err)
	}
	ans, err := findOne[mentor.Answer](ctx, a.c, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, mentor.ErrNotFound
		}
		return nil, false, err
	}
	return ans, res.UpsertedCount > 0, nil
}

package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/mentor"
)

func gqlID(id primitive.ObjectID) graphql.ID { return graphql.ID(id.Hex()) }

func gqlIDs(list []primitive.ObjectID) []graphql.ID {
	out := make([]graphql.ID, 0, len(list))
	for _, id := range list {
		out = append(out, gqlID(id))
	}
	return out
}

func optionalID(id *primitive.ObjectID) *graphql.ID {
	if id == nil {
		return nil
	}
	v := gqlID(*id)
	return &v
}

type userResolver struct{ u *auth.User }

func (r *userResolver) ID() graphql.ID             { return gqlID(r.u.ID) }
func (r *userResolver) Name() string               { return r.u.Name }
func (r *userResolver) Email() *string             { return optionalString(r.u.Email) }
func (r *userResolver) UserRole() string           { return string(r.u.Role) }
func (r *userResolver) IsDisabled() bool           { return r.u.IsDisabled }
func (r *userResolver) CreatedAt() graphql.Time    { return timeOf(r.u.CreatedAt) }
func (r *userResolver) LastLoginAt() *graphql.Time { return optionalTime(r.u.LastLoginAt) }

func usersOf(list []*auth.User) []*userResolver {
	out := make([]*userResolver, 0, len(list))
	for _, u := range list {
		out = append(out, &userResolver{u})
	}
	return out
}

type userAccessTokenResolver struct {
	user  *auth.User
	token auth.AccessToken
}

func (r *userAccessTokenResolver) User() *userResolver          { return &userResolver{r.user} }
func (r *userAccessTokenResolver) AccessToken() string          { return r.token.Token }
func (r *userAccessTokenResolver) ExpirationDate() graphql.Time { return timeOf(r.token.ExpiresAt) }

type orgPermissionResolver struct{ p auth.OrgPermission }

func (r *orgPermissionResolver) Org() graphql.ID    { return gqlID(r.p.Org) }
func (r *orgPermissionResolver) Permission() string { return string(r.p.Permission) }

type orgMemberResolver struct{ m auth.OrgMember }

func (r *orgMemberResolver) User() graphql.ID { return gqlID(r.m.User) }
func (r *orgMemberResolver) Role() string     { return string(r.m.Role) }

type organizationResolver struct{ o *auth.Organization }

func (r *organizationResolver) ID() graphql.ID          { return gqlID(r.o.ID) }
func (r *organizationResolver) Name() string            { return r.o.Name }
func (r *organizationResolver) Subdomain() string       { return r.o.Subdomain }
func (r *organizationResolver) IsPrivate() bool         { return r.o.IsPrivate }
func (r *organizationResolver) CreatedAt() graphql.Time { return timeOf(r.o.CreatedAt) }
func (r *organizationResolver) UpdatedAt() graphql.Time { return timeOf(r.o.UpdatedAt) }

func (r *organizationResolver) Members() []*orgMemberResolver {
	out := make([]*orgMemberResolver, 0, len(r.o.Members))
	for _, m := range r.o.Members {
		out = append(out, &orgMemberResolver{m})
	}
	return out
}

type setOrgMemberPayloadResolver struct {
	org     *auth.Organization
	created bool
}

func (r *setOrgMemberPayloadResolver) Organization() *organizationResolver {
	return &organizationResolver{r.org}
}
func (r *setOrgMemberPayloadResolver) Created() bool { return r.created }

type mentorResolver struct {
	root *Resolver
	m    *mentor.Mentor
}

func (r *mentorResolver) ID() graphql.ID              { return gqlID(r.m.ID) }
func (r *mentorResolver) User() graphql.ID            { return gqlID(r.m.User) }
func (r *mentorResolver) Name() string                { return r.m.Name }
func (r *mentorResolver) FirstName() string           { return r.m.FirstName }
func (r *mentorResolver) Title() string               { return r.m.Title }
func (r *mentorResolver) MentorType() string          { return string(r.m.MentorType) }
func (r *mentorResolver) IsPrivate() bool             { return r.m.IsPrivate }
func (r *mentorResolver) Subjects() []graphql.ID      { return gqlIDs(r.m.Subjects) }
func (r *mentorResolver) DefaultSubject() *graphql.ID { return optionalID(r.m.DefaultSubject) }
func (r *mentorResolver) CreatedAt() graphql.Time     { return timeOf(r.m.CreatedAt) }
func (r *mentorResolver) UpdatedAt() graphql.Time     { return timeOf(r.m.UpdatedAt) }

func (r *mentorResolver) OrgPermissions() []*orgPermissionResolver {
	out := make([]*orgPermissionResolver, 0, len(r.m.OrgPermissions))
	for _, p := range r.m.OrgPermissions {
		out = append(out, &orgPermissionResolver{p})
	}
	return out
}

func (r *mentorResolver) Answers(ctx context.Context) ([]*answerResolver, error) {
	list, err := r.root.mentors.Answers(ctx, actor(ctx), auth.OrganizationFromContext(ctx), r.m.ID)
	if err != nil {
		return nil, err
	}
	return answersOf(list), nil
}

func (root *Resolver) mentorsOf(list []*mentor.Mentor) []*mentorResolver {
	out := make([]*mentorResolver, 0, len(list))
	for _, m := range list {
		out = append(out, &mentorResolver{root: root, m: m})
	}
	return out
}

type categoryResolver struct{ c mentor.Category }

func (r *categoryResolver) ID() string          { return r.c.ID }
func (r *categoryResolver) Name() string        { return r.c.Name }
func (r *categoryResolver) Description() string { return r.c.Description }

type topicResolver struct{ t mentor.Topic }

func (r *topicResolver) ID() string          { return r.t.ID }
func (r *topicResolver) Name() string        { return r.t.Name }
func (r *topicResolver) Description() string { return r.t.Description }

type subjectQuestionResolver struct{ q mentor.SubjectQuestion }

func (r *subjectQuestionResolver) Question() graphql.ID { return gqlID(r.q.Question) }
func (r *subjectQuestionResolver) Category() *string    { return optionalString(r.q.Category) }
func (r *subjectQuestionResolver) Topics() []string {
	if r.q.Topics == nil {
		return []string{}
	}
	return r.q.Topics
}

type subjectResolver struct{ s *mentor.Subject }

func (r *subjectResolver) ID() graphql.ID          { return gqlID(r.s.ID) }
func (r *subjectResolver) Name() string            { return r.s.Name }
func (r *subjectResolver) Description() string     { return r.s.Description }
func (r *subjectResolver) IsRequired() bool        { return r.s.IsRequired }
func (r *subjectResolver) CreatedAt() graphql.Time { return timeOf(r.s.CreatedAt) }
func (r *subjectResolver) UpdatedAt() graphql.Time { return timeOf(r.s.UpdatedAt) }

func (r *subjectResolver) Categories() []*categoryResolver {
	out := make([]*categoryResolver, 0, len(r.s.Categories))
	for _, c := range r.s.Categories {
		out = append(out, &categoryResolver{c})
	}
	return out
}

func (r *subjectResolver) Topics() []*topicResolver {
	out := make([]*topicResolver, 0, len(r.s.Topics))
	for _, t := range r.s.Topics {
		out = append(out, &topicResolver{t})
	}
	return out
}

func (r *subjectResolver) Questions() []*subjectQuestionResolver {
	out := make([]*subjectQuestionResolver, 0, len(r.s.Questions))
	for _, q := range r.s.Questions {
		out = append(out, &subjectQuestionResolver{q})
	}
	return out
}

type questionResolver struct{ q *mentor.Question }

func (r *questionResolver) ID() graphql.ID           { return gqlID(r.q.ID) }
func (r *questionResolver) Question() string         { return r.q.Question }
func (r *questionResolver) Type() string             { return string(r.q.Type) }
func (r *questionResolver) Name() *string            { return optionalString(r.q.Name) }
func (r *questionResolver) Mentor() *graphql.ID      { return optionalID(r.q.Mentor) }
func (r *questionResolver) MinVideoLength() *float64 { return r.q.MinVideoLength }
func (r *questionResolver) CreatedAt() graphql.Time  { return timeOf(r.q.CreatedAt) }
func (r *questionResolver) UpdatedAt() graphql.Time  { return timeOf(r.q.UpdatedAt) }

func (r *questionResolver) Paraphrases() []string {
	if r.q.Paraphrases == nil {
		return []string{}
	}
	return r.q.Paraphrases
}

func (r *questionResolver) MentorType() *string {
	return optionalString(string(r.q.MentorType))
}

type mediaResolver struct{ m mentor.Media }

func (r *mediaResolver) Type() string { return r.m.Type }
func (r *mediaResolver) Tag() string  { return r.m.Tag }
func (r *mediaResolver) URL() string  { return r.m.URL }

type answerResolver struct{ a *mentor.Answer }

func (r *answerResolver) ID() graphql.ID          { return gqlID(r.a.ID) }
func (r *answerResolver) Mentor() graphql.ID      { return gqlID(r.a.Mentor) }
func (r *answerResolver) Question() graphql.ID    { return gqlID(r.a.Question) }
func (r *answerResolver) Transcript() string      { return r.a.Transcript }
func (r *answerResolver) Status() string          { return string(r.a.Status) }
func (r *answerResolver) CreatedAt() graphql.Time { return timeOf(r.a.CreatedAt) }
func (r *answerResolver) UpdatedAt() graphql.Time { return timeOf(r.a.UpdatedAt) }

func (r *answerResolver) Media() []*mediaResolver {
	out := make([]*mediaResolver, 0, len(r.a.Media))
	for _, m := range r.a.Media {
		out = append(out, &mediaResolver{m})
	}
	return out
}

func answersOf(list []*mentor.Answer) []*answerResolver {
	out := make([]*answerResolver, 0, len(list))
	for _, a := range list {
		out = append(out, &answerResolver{a})
	}
	return out
}

type updateAnswerPayloadResolver struct {
	a       *mentor.Answer
	created bool
}

func (r *updateAnswerPayloadResolver) Answer() *answerResolver { return &answerResolver{r.a} }
func (r *updateAnswerPayloadResolver) Created() bool           { return r.created }

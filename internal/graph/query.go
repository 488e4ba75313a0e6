package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/ids"
)

type idArgs struct {
	ID graphql.ID
}

func (r *Resolver) Me(ctx context.Context) *userResolver {
	u := auth.ActorFromContext(ctx)
	if u == nil {
		return nil
	}
	return &userResolver{u}
}

func (r *Resolver) User(ctx context.Context, args idArgs) (*userResolver, error) {
	id, err := ids.Parse(string(args.ID))
	if err != nil {
		return nil, err
	}
	u, err := r.auth.User(ctx, auth.ActorFromContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return &userResolver{u}, nil
}

func (r *Resolver) Users(ctx context.Context) ([]*userResolver, error) {
	list, err := r.auth.Users(ctx, auth.ActorFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return usersOf(list), nil
}

func (r *Resolver) Mentor(ctx context.Context, args idArgs) (*mentorResolver, error) {
	id, err := ids.Parse(string(args.ID))
	if err != nil {
		return nil, err
	}
	m, err := r.mentors.Mentor(ctx, actor(ctx), auth.OrganizationFromContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return &mentorResolver{root: r, m: m}, nil
}

func (r *Resolver) Mentors(ctx context.Context) ([]*mentorResolver, error) {
	list, err := r.mentors.Mentors(ctx, actor(ctx), auth.OrganizationFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return r.mentorsOf(list), nil
}

func (r *Resolver) Organization(ctx context.Context, args idArgs) (*organizationResolver, error) {
	id, err := ids.Parse(string(args.ID))
	if err != nil {
		return nil, err
	}
	org, err := r.orgs.Organization(ctx, actor(ctx), id)
	if err != nil {
		return nil, err
	}
	return &organizationResolver{org}, nil
}

func (r *Resolver) Organizations(ctx context.Context) ([]*organizationResolver, error) {
	list, err := r.orgs.Organizations(ctx, actor(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]*organizationResolver, 0, len(list))
	for _, o := range list {
		out = append(out, &organizationResolver{o})
	}
	return out, nil
}

func (r *Resolver) Subject(ctx context.Context, args idArgs) (*subjectResolver, error) {
	id, err := ids.Parse(string(args.ID))
	if err != nil {
		return nil, err
	}
	s, err := r.mentors.Subject(ctx, id)
	if err != nil {
		return nil, err
	}
	return &subjectResolver{s}, nil
}

func (r *Resolver) Subjects(ctx context.Context) ([]*subjectResolver, error) {
	list, err := r.mentors.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*subjectResolver, 0, len(list))
	for _, s := range list {
		out = append(out, &subjectResolver{s})
	}
	return out, nil
}

func (r *Resolver) Question(ctx context.Context, args idArgs) (*questionResolver, error) {
	id, err := ids.Parse(string(args.ID))
	if err != nil {
		return nil, err
	}
	q, err := r.mentors.Question(ctx, id)
	if err != nil {
		return nil, err
	}
	return &questionResolver{q}, nil
}

func (r *Resolver) Questions(ctx context.Context) ([]*questionResolver, error) {
	list, err := r.mentors.Questions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*questionResolver, 0, len(list))
	for _, q := range list {
		out = append(out, &questionResolver{q})
	}
	return out, nil
}

func (r *Resolver) Answers(ctx context.Context, args struct{ MentorID graphql.ID }) ([]*answerResolver, error) {
	id, err := ids.Parse(string(args.MentorID))
	if err != nil {
		return nil, err
	}
	list, err := r.mentors.Answers(ctx, actor(ctx), auth.OrganizationFromContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return answersOf(list), nil
}

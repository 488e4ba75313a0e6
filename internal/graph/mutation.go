package graph

import (
	"context"
	"fmt"

	graphql "github.com/graph-gophers/graphql-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/httpapi"
	"mentorgraph.org/internal/ids"
	"mentorgraph.org/internal/mentor"
)

// startSession hands the refresh token to the client as a cookie and returns the access
// token in the payload.
func (r *Resolver) startSession(ctx context.Context, sess auth.Session) *userAccessTokenResolver {
	httpapi.SessionFromContext(ctx).SetRefreshToken(sess.RefreshToken, sess.RefreshExpiresAt)
	return &userAccessTokenResolver{user: sess.User, token: sess.Access}
}

func (r *Resolver) SignUp(ctx context.Context, args struct {
	Name     string
	Email    string
	Password string
}) (*userAccessTokenResolver, error) {
	sess, err := r.auth.SignUp(ctx, auth.SignUpInput{Name: args.Name, Email: args.Email, Password: args.Password})
	if err != nil {
		return nil, err
	}
	return r.startSession(ctx, sess), nil
}

func (r *Resolver) LoginWithPassword(ctx context.Context, args struct {
	Email    string
	Password string
}) (*userAccessTokenResolver, error) {
	sess, err := r.auth.LoginWithPassword(ctx, args.Email, args.Password)
	if err != nil {
		return nil, err
	}
	return r.startSession(ctx, sess), nil
}

func (r *Resolver) LoginGoogle(ctx context.Context, args struct{ AccessToken string }) (*userAccessTokenResolver, error) {
	sess, err := r.auth.LoginGoogle(ctx, args.AccessToken)
	if err != nil {
		return nil, err
	}
	return r.startSession(ctx, sess), nil
}

// Login exchanges a valid access token for a long-lived one.
func (r *Resolver) Login(ctx context.Context, args struct{ AccessToken string }) (*userAccessTokenResolver, error) {
	user, tok, err := r.auth.LoginLegacy(ctx, args.AccessToken)
	if err != nil {
		return nil, err
	}
	return &userAccessTokenResolver{user: user, token: tok}, nil
}

func (r *Resolver) RefreshAccessToken(ctx context.Context) (*userAccessTokenResolver, error) {
	s := httpapi.SessionFromContext(ctx)
	if sess, ok := s.Renewed(); ok {
		// The middleware already rotated the cookie for an expired access token.
		return &userAccessTokenResolver{user: sess.User, token: sess.Access}, nil
	}
	value := s.RefreshToken()
	if value == "" {
		return nil, fmt.Errorf("%w: refresh token cookie missing", auth.ErrUnauthenticated)
	}
	sess, err := r.auth.Refresh(ctx, value)
	if err != nil {
		if classify(err) == CodeUnauthenticated {
			s.ClearRefreshToken(r.now())
		}
		return nil, err
	}
	return r.startSession(ctx, sess), nil
}

func (r *Resolver) Logout(ctx context.Context) (bool, error) {
	s := httpapi.SessionFromContext(ctx)
	if value := s.RefreshToken(); value != "" {
		if err := r.auth.Logout(ctx, value); err != nil {
			return false, err
		}
	}
	s.ClearRefreshToken(r.now())
	return true, nil
}

type mentorDetailsInput struct {
	Name           *string
	FirstName      *string
	Title          *string
	MentorType     *string
	Subjects       *[]graphql.ID
	DefaultSubject *graphql.ID
}

func (r *Resolver) UpdateMentorDetails(ctx context.Context, args struct {
	MentorID graphql.ID
	Mentor   mentorDetailsInput
}) (*mentorResolver, error) {
	id, err := ids.Parse(string(args.MentorID))
	if err != nil {
		return nil, err
	}
	in := mentor.DetailsInput{
		Name:      args.Mentor.Name,
		FirstName: args.Mentor.FirstName,
		Title:     args.Mentor.Title,
	}
	if args.Mentor.MentorType != nil {
		t, err := mentor.ParseType(*args.Mentor.MentorType)
		if err != nil {
			return nil, err
		}
		in.MentorType = &t
	}
	if args.Mentor.Subjects != nil {
		subjects, err := parseIDs(*args.Mentor.Subjects)
		if err != nil {
			return nil, err
		}
		in.Subjects = &subjects
	}
	if in.DefaultSubject, err = parseOptionalID(args.Mentor.DefaultSubject); err != nil {
		return nil, err
	}
	m, err := r.mentors.UpdateDetails(ctx, actor(ctx), id, in)
	if err != nil {
		return nil, err
	}
	return &mentorResolver{root: r, m: m}, nil
}

func (r *Resolver) UpdateMentorPrivacy(ctx context.Context, args struct {
	MentorID  graphql.ID
	IsPrivate bool
}) (*mentorResolver, error) {
	id, err := ids.Parse(string(args.MentorID))
	if err != nil {
		return nil, err
	}
	m, err := r.mentors.UpdatePrivacy(ctx, actor(ctx), id, args.IsPrivate)
	if err != nil {
		return nil, err
	}
	return &mentorResolver{root: r, m: m}, nil
}

type orgPermissionInput struct {
	Org        graphql.ID
	Permission string
}

func (r *Resolver) UpdateMentorOrgPermissions(ctx context.Context, args struct {
	MentorID    graphql.ID
	Permissions []orgPermissionInput
}) (*mentorResolver, error) {
	id, err := ids.Parse(string(args.MentorID))
	if err != nil {
		return nil, err
	}
	perms := make([]auth.OrgPermission, 0, len(args.Permissions))
	for _, p := range args.Permissions {
		org, err := ids.Parse(string(p.Org))
		if err != nil {
			return nil, err
		}
		lvl, err := auth.ParseOrgPermissionLevel(p.Permission)
		if err != nil {
			return nil, err
		}
		perms = append(perms, auth.OrgPermission{Org: org, Permission: lvl})
	}
	m, err := r.mentors.UpdateOrgPermissions(ctx, actor(ctx), id, perms)
	if err != nil {
		return nil, err
	}
	return &mentorResolver{root: r, m: m}, nil
}

type mediaInput struct {
	Type string
	Tag  string
	URL  string
}

type answerInput struct {
	Transcript *string
	Status     *string
	Media      *[]mediaInput
}

func (r *Resolver) UpdateAnswer(ctx context.Context, args struct {
	MentorID   graphql.ID
	QuestionID graphql.ID
	Answer     answerInput
}) (*updateAnswerPayloadResolver, error) {
	mentorID, err := ids.Parse(string(args.MentorID))
	if err != nil {
		return nil, err
	}
	questionID, err := ids.Parse(string(args.QuestionID))
	if err != nil {
		return nil, err
	}
	in := mentor.AnswerInput{Transcript: args.Answer.Transcript}
	if args.Answer.Status != nil {
		st, err := mentor.ParseStatus(*args.Answer.Status)
		if err != nil {
			return nil, err
		}
		in.Status = &st
	}
	if args.Answer.Media != nil {
		media := make([]mentor.Media, 0, len(*args.Answer.Media))
		for _, m := range *args.Answer.Media {
			media = append(media, mentor.Media{Type: m.Type, Tag: m.Tag, URL: m.URL})
		}
		in.Media = &media
	}
	a, created, err := r.mentors.UpdateAnswer(ctx, actor(ctx), mentorID, questionID, in)
	if err != nil {
		return nil, err
	}
	return &updateAnswerPayloadResolver{a: a, created: created}, nil
}

type categoryInput struct {
	ID          string
	Name        string
	Description *string
}

type subjectQuestionInput struct {
	Question graphql.ID
	Category *string
	Topics   *[]string
}

type subjectInput struct {
	ID          *graphql.ID
	Name        string
	Description *string
	IsRequired  *bool
	Categories  *[]categoryInput
	Topics      *[]categoryInput
	Questions   *[]subjectQuestionInput
}

func (r *Resolver) UpdateSubject(ctx context.Context, args struct{ Subject subjectInput }) (*subjectResolver, error) {
	in := args.Subject
	id, err := parseOptionalID(in.ID)
	if err != nil {
		return nil, err
	}
	out := mentor.SubjectInput{
		Name:        in.Name,
		Description: deref(in.Description),
		IsRequired:  in.IsRequired != nil && *in.IsRequired,
	}
	if in.Categories != nil {
		for _, c := range *in.Categories {
			out.Categories = append(out.Categories, mentor.Category{ID: c.ID, Name: c.Name, Description: deref(c.Description)})
		}
	}
	if in.Topics != nil {
		for _, t := range *in.Topics {
			out.Topics = append(out.Topics, mentor.Topic{ID: t.ID, Name: t.Name, Description: deref(t.Description)})
		}
	}
	if in.Questions != nil {
		for _, sq := range *in.Questions {
			qid, err := ids.Parse(string(sq.Question))
			if err != nil {
				return nil, err
			}
			entry := mentor.SubjectQuestion{Question: qid, Category: deref(sq.Category)}
			if sq.Topics != nil {
				entry.Topics = *sq.Topics
			}
			out.Questions = append(out.Questions, entry)
		}
	}
	s, err := r.mentors.SaveSubject(ctx, actor(ctx), id, out)
	if err != nil {
		return nil, err
	}
	return &subjectResolver{s}, nil
}

type questionInput struct {
	ID             *graphql.ID
	Question       string
	Type           *string
	Name           *string
	Paraphrases    *[]string
	Mentor         *graphql.ID
	MentorType     *string
	MinVideoLength *float64
}

func (r *Resolver) UpdateQuestion(ctx context.Context, args struct{ Question questionInput }) (*questionResolver, error) {
	in := args.Question
	id, err := parseOptionalID(in.ID)
	if err != nil {
		return nil, err
	}
	owner, err := parseOptionalID(in.Mentor)
	if err != nil {
		return nil, err
	}
	out := mentor.QuestionInput{
		Question:       in.Question,
		Type:           mentor.QuestionType(deref(in.Type)),
		Name:           deref(in.Name),
		Mentor:         owner,
		MinVideoLength: in.MinVideoLength,
	}
	if in.Paraphrases != nil {
		out.Paraphrases = *in.Paraphrases
	}
	if in.MentorType != nil {
		t, err := mentor.ParseType(*in.MentorType)
		if err != nil {
			return nil, err
		}
		out.MentorType = t
	}
	q, err := r.mentors.SaveQuestion(ctx, actor(ctx), id, out)
	if err != nil {
		return nil, err
	}
	return &questionResolver{q}, nil
}

func (r *Resolver) UpdateUserRole(ctx context.Context, args struct {
	UserID graphql.ID
	Role   string
}) (*userResolver, error) {
	id, err := ids.Parse(string(args.UserID))
	if err != nil {
		return nil, err
	}
	role, err := auth.ParseRole(args.Role)
	if err != nil {
		return nil, err
	}
	u, err := r.auth.SetUserRole(ctx, auth.ActorFromContext(ctx), id, role)
	if err != nil {
		return nil, err
	}
	return &userResolver{u}, nil
}

func (r *Resolver) UpdateUserDisabled(ctx context.Context, args struct {
	UserID     graphql.ID
	IsDisabled bool
}) (*userResolver, error) {
	id, err := ids.Parse(string(args.UserID))
	if err != nil {
		return nil, err
	}
	u, err := r.auth.SetUserDisabled(ctx, auth.ActorFromContext(ctx), id, args.IsDisabled)
	if err != nil {
		return nil, err
	}
	return &userResolver{u}, nil
}

type organizationInput struct {
	Name      string
	Subdomain string
	IsPrivate *bool
}

func (r *Resolver) AddOrganization(ctx context.Context, args struct{ Organization organizationInput }) (*organizationResolver, error) {
	in := args.Organization
	org, err := r.orgs.Create(ctx, auth.ActorFromContext(ctx), auth.OrganizationInput{
		Name:      in.Name,
		Subdomain: in.Subdomain,
		IsPrivate: in.IsPrivate != nil && *in.IsPrivate,
	})
	if err != nil {
		return nil, err
	}
	return &organizationResolver{org}, nil
}

type organizationUpdateInput struct {
	Name      *string
	Subdomain *string
	IsPrivate *bool
}

func (r *Resolver) UpdateOrganization(ctx context.Context, args struct {
	ID           graphql.ID
	Organization organizationUpdateInput
}) (*organizationResolver, error) {
	id, err := ids.Parse(string(args.ID))
	if err != nil {
		return nil, err
	}
	in := args.Organization
	org, err := r.orgs.Update(ctx, auth.ActorFromContext(ctx), id, auth.OrganizationPatch{
		Name:      in.Name,
		Subdomain: in.Subdomain,
		IsPrivate: in.IsPrivate,
	})
	if err != nil {
		return nil, err
	}
	return &organizationResolver{org}, nil
}

type memberArgs struct {
	OrgID  graphql.ID
	UserID graphql.ID
}

func (a memberArgs) parse() (primitive.ObjectID, primitive.ObjectID, error) {
	org, err := ids.Parse(string(a.OrgID))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	user, err := ids.Parse(string(a.UserID))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return org, user, nil
}

func (r *Resolver) SetOrgMember(ctx context.Context, args struct {
	OrgID  graphql.ID
	UserID graphql.ID
	Role   string
}) (*setOrgMemberPayloadResolver, error) {
	orgID, userID, err := memberArgs{OrgID: args.OrgID, UserID: args.UserID}.parse()
	if err != nil {
		return nil, err
	}
	role, err := auth.ParseRole(args.Role)
	if err != nil {
		return nil, err
	}
	org, created, err := r.orgs.SetMember(ctx, auth.ActorFromContext(ctx), orgID, userID, role)
	if err != nil {
		return nil, err
	}
	return &setOrgMemberPayloadResolver{org: org, created: created}, nil
}

func (r *Resolver) RemoveOrgMember(ctx context.Context, args memberArgs) (*organizationResolver, error) {
	orgID, userID, err := args.parse()
	if err != nil {
		return nil, err
	}
	org, err := r.orgs.RemoveMember(ctx, auth.ActorFromContext(ctx), orgID, userID)
	if err != nil {
		return nil, err
	}
	return &organizationResolver{org}, nil
}

func parseIDs(list []graphql.ID) ([]primitive.ObjectID, error) {
	raw := make([]string, 0, len(list))
	for _, id := range list {
		raw = append(raw, string(id))
	}
	return ids.ParseAll(raw)
}

func parseOptionalID(id *graphql.ID) (*primitive.ObjectID, error) {
	if id == nil {
		return nil, nil
	}
	raw := string(*id)
	return ids.ParseOptional(&raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Package graph exposes the platform over a single GraphQL endpoint.
package graph

import (
	"context"
	_ "embed"
	"errors"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/mentor"
)

//go:embed schema.graphql
var schemaSDL string

// Resolver is the root resolver for queries and mutations.
type Resolver struct {
	auth    *auth.Service
	orgs    *auth.OrgService
	mentors *mentor.Service
	now     func() time.Time
}

// NewResolver wires the services behind the schema.
func NewResolver(authSvc *auth.Service, orgs *auth.OrgService, mentors *mentor.Service) (*Resolver, error) {
	if authSvc == nil || orgs == nil || mentors == nil {
		return nil, errors.New("graph: auth, organization and mentor services are required")
	}
	return &Resolver{auth: authSvc, orgs: orgs, mentors: mentors, now: time.Now}, nil
}

// NewSchema parses the embedded schema against r.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaSDL, r,
		graphql.MaxDepth(12),
		graphql.Logger(panicLogger{}),
	)
}

// serviceActor stands in for requests authenticated with the shared API secret. Trusted
// services hold content-manager rights and no user identity.
var serviceActor = &auth.User{Name: "trusted-service", Role: auth.RoleContentManager}

// actor returns the user the request acts as, or nil when anonymous.
func actor(ctx context.Context) *auth.User {
	if u := auth.ActorFromContext(ctx); u != nil {
		return u
	}
	if auth.IsTrustedService(ctx) {
		return serviceActor
	}
	return nil
}

func timeOf(t time.Time) graphql.Time {
	return graphql.Time{Time: t}
}

func optionalTime(t time.Time) *graphql.Time {
	if t.IsZero() {
		return nil
	}
	return &graphql.Time{Time: t}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

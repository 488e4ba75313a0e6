package auth

import "context"

type actorContextKey struct{}
type serviceContextKey struct{}
type orgContextKey struct{}

// ContextWithActor attaches the authenticated user to the context.
func ContextWithActor(ctx context.Context, user *User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, actorContextKey{}, user)
}

// ActorFromContext returns the authenticated user, or nil for anonymous requests.
func ActorFromContext(ctx context.Context) *User {
	if ctx == nil {
		return nil
	}
	u, _ := ctx.Value(actorContextKey{}).(*User)
	return u
}

// ContextWithTrustedService marks the request as coming from a backend service holding
// the shared API secret.
func ContextWithTrustedService(ctx context.Context) context.Context {
	return context.WithValue(ctx, serviceContextKey{}, true)
}

// IsTrustedService reports whether ContextWithTrustedService was applied.
func IsTrustedService(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(serviceContextKey{}).(bool)
	return v
}

// ContextWithOrganization attaches the organization selected for the request.
func ContextWithOrganization(ctx context.Context, org *Organization) context.Context {
	if org == nil {
		return ctx
	}
	return context.WithValue(ctx, orgContextKey{}, org)
}

// OrganizationFromContext returns the selected organization or nil.
func OrganizationFromContext(ctx context.Context) *Organization {
	if ctx == nil {
		return nil
	}
	o, _ := ctx.Value(orgContextKey{}).(*Organization)
	return o
}

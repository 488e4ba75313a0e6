package httpapi

import (
	"context"
	"net/http"
	"strings"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/obs"
)

const organizationHeader = "X-Organization"

// OrgResolver maps a subdomain to an organization. Unknown subdomains yield nil, nil.
type OrgResolver interface {
	Resolve(ctx context.Context, subdomain string) (*auth.Organization, error)
}

// withOrganization attaches the organization named by X-Organization, if it exists.
func (a *API) withOrganization(next http.Handler) http.Handler {
	if a.opts.Orgs == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.Header.Get(organizationHeader))
		if sub == "" {
			next.ServeHTTP(w, r)
			return
		}
		org, err := a.opts.Orgs.Resolve(r.Context(), sub)
		if err != nil {
			obs.LoggerFromContext(r.Context()).WithError(err).WithField("subdomain", sub).Warn("resolve organization failed")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithOrganization(r.Context(), org)))
	})
}

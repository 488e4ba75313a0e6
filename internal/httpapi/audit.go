package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"mentorgraph.org/internal/audit"
	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/obs"
)

// AuditReader lists persisted audit events, newest first.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

// AuditEvents serves GET /v1/audit?limit=N to admins.
func (a *API) AuditEvents(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	switch {
	case actor == nil:
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	case actor.IsDisabled || !actor.Role.IsAdmin():
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	events, err := a.opts.Audit.Recent(r.Context(), limit)
	if err != nil {
		obs.LoggerFromContext(r.Context()).WithError(err).Error("list audit events")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

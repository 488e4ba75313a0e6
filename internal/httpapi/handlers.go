package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"mentorgraph.org/internal/obs"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyAll is ready when every member answers its ping.
type ReadyAll []Pinger

func (r ReadyAll) Ping(ctx context.Context) error {
	for _, p := range r {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Options wires the dependencies of the HTTP layer.
type Options struct {
	Version string
	GraphQL http.Handler
	Ready   Pinger
	Auth    Authenticator
	Orgs    OrgResolver
	Audit   AuditReader
	Cookies CookieConfig
	// Limiter replaces the in-process token bucket, e.g. with a Redis-backed limiter.
	Limiter      Limiter
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
	CORSOrigins  []string
}

// API is the HTTP layer.
type API struct {
	router  *mux.Router
	opts    Options
	limiter Limiter
	now     func() time.Time
}

// New builds the router. A nil GraphQL handler answers 404 on /graphql.
func New(opts Options) *API {
	if opts.RateBurst <= 0 {
		opts.RateBurst = 40
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 20
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	a := &API{
		router:  mux.NewRouter(),
		opts:    opts,
		limiter: opts.Limiter,
		now:     time.Now,
	}
	if a.limiter == nil {
		a.limiter = NewLocalLimiter(opts.RateBurst, opts.RatePerSec)
	}

	a.router.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	a.router.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	a.router.HandleFunc("/v1/info", a.Info).Methods(http.MethodGet)
	a.router.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	if opts.Audit != nil {
		a.router.Handle("/v1/audit", a.withAuth(http.HandlerFunc(a.AuditEvents))).Methods(http.MethodGet)
	}
	if opts.GraphQL != nil {
		gql := a.withSession(a.withAuth(a.withOrganization(opts.GraphQL)))
		a.router.Handle("/graphql", RateLimit(gql, a.limiter)).Methods(http.MethodPost, http.MethodOptions)
	}
	a.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	return a
}

// Handler returns the fully wrapped handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = CORS(h, a.opts.CORSOrigins)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	h = Recover(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "mentorgraph-api",
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.opts.Ready.Ping(ctx); err != nil {
			obs.LoggerFromContext(r.Context()).WithError(err).Warn("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "mentorgraph-api",
		"time":    a.now().UTC().Format(time.RFC3339),
		"version": a.opts.Version,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	body := map[string]any{"error": msg}
	if rid := obs.RequestID(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, code, body)
}

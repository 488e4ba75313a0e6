package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"mentorgraph.org/internal/audit"
	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/config"
	"mentorgraph.org/internal/graph"
	"mentorgraph.org/internal/httpapi"
	"mentorgraph.org/internal/mentor"
	"mentorgraph.org/internal/migrate"
	"mentorgraph.org/internal/obs"
	"mentorgraph.org/internal/store/memory"
	"mentorgraph.org/internal/store/mongostore"
	"mentorgraph.org/migrations"
)

// backend is satisfied by both the Mongo and the in-memory store.
type backend interface {
	auth.Store
	mentor.Store
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().WithError(err).Fatal("load config")
	}
	obs.SetLevel(cfg.Observe.LogLevel)
	obs.Init()
	obs.InitBuildInfo(cfg.Version, cfg.Commit)
	log := obs.Logger().WithField("version", cfg.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := obs.InitTracing(ctx, obs.TracingConfig{
		Enabled:        cfg.Observe.OTelEnabled,
		Endpoint:       cfg.Observe.OTelEndpoint,
		ServiceName:    cfg.Observe.ServiceName,
		ServiceVersion: cfg.Version,
		Insecure:       cfg.Observe.OTelInsecure,
	})
	if err != nil {
		log.WithError(err).Warn("tracing disabled")
	}

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	auditDB := openAudit(ctx, cfg)
	var auditReader httpapi.AuditReader
	if auditDB != nil {
		auditReader = audit.NewPGSink(auditDB)
	}

	ready := httpapi.ReadyAll{store}
	var limiter httpapi.Limiter
	if cfg.Limits.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Limits.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("parse REDIS_URL")
		}
		client := redis.NewClient(opts)
		defer client.Close()
		redisLimiter := httpapi.NewRedisLimiter(client, cfg.Limits.PerWindow(), cfg.Limits.Window)
		limiter = redisLimiter
		ready = append(ready, redisLimiter)
		log.WithField("per_window", cfg.Limits.PerWindow()).Info("rate limiting through redis")
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret,
		auth.WithTokenIssuer(cfg.Auth.Issuer),
		auth.WithShortTTL(cfg.Auth.AccessTokenTTL),
		auth.WithLongTTL(cfg.Auth.LongTokenTTL),
	)
	if err != nil {
		log.WithError(err).Fatal("token issuer")
	}
	mentors, err := mentor.NewService(store, auth.NewAuthorizer(store))
	if err != nil {
		log.WithError(err).Fatal("mentor service")
	}
	authOpts := []auth.ServiceOption{
		auth.WithMentorDirectory(mentors),
		auth.WithAPISecret(cfg.Auth.APISecret),
		auth.WithRefreshTTL(cfg.Auth.RefreshTokenTTL),
	}
	if cfg.Auth.GoogleClientID != "" {
		google, err := auth.NewGoogleVerifier(ctx, cfg.Auth.GoogleIssuer, cfg.Auth.GoogleClientID)
		if err != nil {
			log.WithError(err).Fatal("google verifier")
		}
		authOpts = append(authOpts, auth.WithGoogleVerifier(google))
	}
	authSvc, err := auth.NewService(store, tokens, authOpts...)
	if err != nil {
		log.WithError(err).Fatal("auth service")
	}
	orgs, err := auth.NewOrgService(store)
	if err != nil {
		log.WithError(err).Fatal("organization service")
	}

	resolver, err := graph.NewResolver(authSvc, orgs, mentors)
	if err != nil {
		log.WithError(err).Fatal("graphql resolver")
	}
	schema, err := graph.NewSchema(resolver)
	if err != nil {
		log.WithError(err).Fatal("graphql schema")
	}

	api := httpapi.New(httpapi.Options{
		Version:      cfg.Version,
		GraphQL:      graph.NewHandler(schema),
		Ready:        ready,
		Auth:         authSvc,
		Orgs:         orgs,
		Audit:        auditReader,
		Cookies:      httpapi.CookieConfig{Domain: cfg.Auth.CookieDomain, Secure: cfg.Auth.CookieSecure},
		Limiter:      limiter,
		RateBurst:    cfg.Limits.Burst,
		RatePerSec:   cfg.Limits.PerSecond,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           obs.Trace(api.Handler(), "mentorgraph-api"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("starting mentorgraph-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("listen")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracing shutdown")
	}
	if auditDB != nil {
		audit.SetSink(nil)
		_ = auditDB.Close()
	}
	log.Info("stopped")
}

// openStore connects to MongoDB when configured and falls back to process memory.
func openStore(ctx context.Context, cfg *config.Config) (backend, func()) {
	log := obs.Logger()
	if cfg.Mongo.URI == "" {
		log.Warn("MONGO_URI not set; using in-memory store")
		return memory.New(), func() {}
	}
	s, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout)
	if err != nil {
		log.WithError(err).Fatal("connect mongo")
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("ensure mongo indexes")
	}
	log.WithField("database", cfg.Mongo.Database).Info("mongo store ready")
	return s, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(closeCtx)
	}
}

// openAudit migrates the audit database and installs the Postgres sink. Audit events are
// only logged when no DSN is configured.
func openAudit(ctx context.Context, cfg *config.Config) *sql.DB {
	if cfg.Audit.PostgresDSN == "" {
		return nil
	}
	log := obs.Logger()
	db, err := audit.OpenPostgres(ctx, cfg.Audit.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("open audit database")
	}
	applied, err := migrate.NewManager(db, migrations.Source(cfg.Audit.MigrationsDir), migrate.WithLogger(log)).Up(ctx)
	if err != nil {
		log.WithError(err).Fatal("migrate audit database")
	}
	log.WithField("applied", len(applied)).Info("audit database ready")
	audit.SetSink(audit.NewPGSink(db))
	return db
}

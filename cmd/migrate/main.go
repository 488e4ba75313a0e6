package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"mentorgraph.org/internal/audit"
	"mentorgraph.org/internal/migrate"
	"mentorgraph.org/internal/obs"
	"mentorgraph.org/internal/store/mongostore"
	"mentorgraph.org/migrations"
)

const usage = "usage: migrate [up|down|status|mongo-indexes]"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		obs.Logger().WithError(err).Fatal("read .env")
	}
	var (
		dsn      = flag.String("dsn", os.Getenv("AUDIT_PG_DSN"), "PostgreSQL DSN of the audit database")
		dir      = flag.String("migrations", os.Getenv("AUDIT_MIGRATIONS_DIR"), "directory of SQL migrations; empty uses the embedded set")
		mongoURI = flag.String("mongo-uri", os.Getenv("MONGO_URI"), "MongoDB URI for mongo-indexes")
		mongoDB  = flag.String("mongo-db", envOr("MONGO_DB", "mentorgraph"), "MongoDB database for mongo-indexes")
	)
	flag.Parse()
	log := obs.Logger()
	if flag.NArg() == 0 {
		log.Fatal(usage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := flag.Arg(0)
	if cmd == "mongo-indexes" {
		store, err := mongostore.Connect(ctx, *mongoURI, *mongoDB, 10*time.Second)
		if err != nil {
			log.WithError(err).Fatal("connect mongo")
		}
		defer store.Close(context.Background())
		if err := store.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("ensure indexes")
		}
		log.WithField("database", *mongoDB).Info("indexes ensured")
		return
	}

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or AUDIT_PG_DSN")
	}
	db, err := audit.OpenPostgres(ctx, *dsn)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrations.Source(*dir), migrate.WithLogger(log))
	switch cmd {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		if err == nil && len(applied) == 0 {
			fmt.Println("up to date")
		}
	case "down":
		_, err = mgr.Down(ctx)
		if errors.Is(err, migrate.ErrNothingApplied) {
			fmt.Println("nothing to roll back")
			err = nil
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		for _, name := range history {
			fmt.Println(name)
		}
	default:
		log.Fatalf("unknown command %q; %s", cmd, usage)
	}
	if err != nil {
		log.WithError(err).Fatalf("migrate %s", cmd)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

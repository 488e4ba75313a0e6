package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTable = "schema_migrations"

// ErrNothingApplied is returned by Down when the bookkeeping table is empty.
var ErrNothingApplied = errors.New("no migrations applied")

// Manager applies SQL migrations read from an fs.FS. Files are named
// NNNN_name.up.sql with an optional matching NNNN_name.down.sql.
type Manager struct {
	db    *sql.DB
	files fs.FS
	table string
	log   logrus.FieldLogger
	now   func() time.Time
}

// Option configures Manager.
type Option func(*Manager)

// WithTable overrides the bookkeeping table name.
func WithTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.table = name
		}
	}
}

// WithLogger sets the logger used for progress lines.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager constructs a Manager over files.
func NewManager(db *sql.DB, files fs.FS, opts ...Option) *Manager {
	m := &Manager{
		db:    db,
		files: files,
		table: defaultTable,
		log:   logrus.StandardLogger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies pending migrations in name order and returns the names it applied.
func (m *Manager) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.history(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}
	pending, err := m.available()
	if err != nil {
		return nil, err
	}
	var ran []string
	for _, name := range pending {
		if done[name] {
			continue
		}
		if err := m.apply(ctx, name+".up.sql", func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, fmt.Sprintf(`insert into %s (name, applied_at) values ($1, $2)`, m.table), name, m.now().UTC())
			return err
		}); err != nil {
			return ran, fmt.Errorf("apply migration %s: %w", name, err)
		}
		m.log.WithField("migration", name).Info("migration applied")
		ran = append(ran, name)
	}
	return ran, nil
}

// Down rolls back the most recently applied migration and returns its name.
func (m *Manager) Down(ctx context.Context) (string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return "", err
	}
	applied, err := m.history(ctx)
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		return "", ErrNothingApplied
	}
	last := applied[len(applied)-1]
	file := last + ".down.sql"
	if _, err := fs.Stat(m.files, file); err != nil {
		return "", fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.apply(ctx, file, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`delete from %s where name = $1`, m.table), last)
		return err
	}); err != nil {
		return "", fmt.Errorf("rollback migration %s: %w", last, err)
	}
	m.log.WithField("migration", last).Info("migration rolled back")
	return last, nil
}

// Status returns applied migrations in apply order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	return m.history(ctx)
}

func (m *Manager) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`create table if not exists %s (
		name text primary key,
		applied_at timestamptz not null default now()
	)`, m.table))
	return err
}

// apply runs the statements of file and the bookkeeping step in one transaction.
func (m *Manager) apply(ctx context.Context, file string, record func(*sql.Tx) error) error {
	body, err := fs.ReadFile(m.files, file)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(body)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if err := record(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) history(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s order by name asc`, m.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// available lists migration names (file name without .up.sql) in lexical order.
func (m *Manager) available() ([]string, error) {
	if m.files == nil {
		return nil, nil
	}
	matches, err := fs.Glob(m.files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, f := range matches {
		names = append(names, strings.TrimSuffix(path.Base(f), ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements splits on semicolons outside single-quoted strings and drops blanks.
func splitStatements(body string) []string {
	var (
		stmts    []string
		current  strings.Builder
		inString bool
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); !commentOnly(s) {
			stmts = append(stmts, s)
		}
		current.Reset()
	}
	for _, r := range body {
		switch {
		case r == '\'':
			inString = !inString
			current.WriteRune(r)
		case r == ';' && !inString:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return stmts
}

func commentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

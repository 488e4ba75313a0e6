package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenPostgres opens and pings a database/sql handle backed by the pgx driver.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("audit: postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}
	return db, nil
}

// PGSink appends events to the audit_log table.
type PGSink struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPGSink returns a sink writing through db.
func NewPGSink(db *sql.DB) *PGSink {
	return &PGSink{db: db, timeout: 2 * time.Second}
}

// Write inserts ev. The insert runs with its own short deadline so a slow audit database
// does not hold the request open.
func (s *PGSink) Write(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev.Fields)
	if err != nil {
		return fmt.Errorf("encode audit fields: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx,
		`insert into audit_log (id, occurred_at, event, request_id, user_id, fields) values ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.OccurredAt, ev.Name, nullString(ev.RequestID), nullString(ev.UserID), payload)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (s *PGSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, occurred_at, event, coalesce(request_id, ''), coalesce(user_id, ''), fields from audit_log order by occurred_at desc limit $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			ev  Event
			raw []byte
		)
		if err := rows.Scan(&ev.ID, &ev.OccurredAt, &ev.Name, &ev.RequestID, &ev.UserID, &raw); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ev.Fields); err != nil {
				return nil, fmt.Errorf("decode audit fields: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

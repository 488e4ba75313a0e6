// Package audit records security relevant events such as logins, token refreshes and
// permission changes. Every event is written to the structured log; a persistent Sink
// may be installed at start-up.
package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mentorgraph.org/internal/ids"
	"mentorgraph.org/internal/obs"
)

// Event is a single audit record.
type Event struct {
	ID         string         `json:"id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Name       string         `json:"event"`
	RequestID  string         `json:"request_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, ev Event) error
}

var (
	sinkMu sync.RWMutex
	sink   Sink
)

// SetSink installs s as the persistent destination. A nil sink disables persistence.
func SetSink(s Sink) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = s
}

func currentSink() Sink {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink
}

// LogEvent writes an audit entry enriched with request and user context.
// Sink failures are logged and never returned; auditing must not break the operation
// being audited.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	ev := Event{
		ID:         ids.New(),
		OccurredAt: time.Now().UTC(),
		Name:       event,
		RequestID:  obs.RequestID(ctx),
		UserID:     obs.UserID(ctx),
		Fields:     make(map[string]any, len(fields)),
	}
	for k, v := range fields {
		ev.Fields[k] = v
	}

	obs.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"type":     "audit",
		"event":    ev.Name,
		"audit_id": ev.ID,
		"fields":   ev.Fields,
	}).Info("audit")

	if s := currentSink(); s != nil {
		if err := s.Write(ctx, ev); err != nil {
			obs.LoggerFromContext(ctx).WithError(err).WithField("event", ev.Name).Warn("audit sink write failed")
		}
	}
	return nil
}

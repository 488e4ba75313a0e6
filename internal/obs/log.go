package obs

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

type logCtxKey string

const (
	requestIDField logCtxKey = "obs_request_id"
	userIDField    logCtxKey = "obs_user_id"
)

// Logger returns the shared structured logger used across the service.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "ts",
			},
		})
	})
	return logger
}

// SetLevel parses level (debug, info, warn, error) and applies it to the shared logger.
// Unknown values fall back to info.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger().SetLevel(lvl)
}

// SetOutput redirects the shared logger. A nil writer restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	Logger().SetOutput(w)
}

// WithRequestID stores the request id used to enrich log entries.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDField, requestID)
}

// WithUserID stores the authenticated user id used to enrich log entries.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDField, userID)
}

// RequestID returns the request id attached to ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDField).(string)
	return v
}

// UserID returns the user id attached to ctx, if any.
func UserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(userIDField).(string)
	return v
}

// LoggerFromContext returns an entry carrying request_id and user_id when present.
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Logger())
	if ctx == nil {
		return entry
	}
	if rid := RequestID(ctx); rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	if uid := UserID(ctx); uid != "" {
		entry = entry.WithField("user_id", uid)
	}
	return entry
}

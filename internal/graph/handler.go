package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/sirupsen/logrus"

	"mentorgraph.org/internal/obs"
)

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler serves POST /graphql. Client-side errors are returned in the GraphQL errors
// array with an extension code; any infrastructure error turns the response into a 500.
type Handler struct {
	schema *graphql.Schema
}

// NewHandler wraps schema.
func NewHandler(schema *graphql.Schema) *Handler {
	return &Handler{schema: schema}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := obs.LoggerFromContext(r.Context())

	var req request
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "query is required"})
		return
	}

	resp := h.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)

	for _, qe := range resp.Errors {
		code := classifyQueryError(qe)
		if code == codeInternal {
			entry := log.WithFields(logrus.Fields{"operation": req.OperationName, "path": qe.Path})
			if qe.ResolverError != nil {
				entry = entry.WithError(qe.ResolverError)
			} else {
				entry = entry.WithField("error", qe.Message)
			}
			entry.Error("graphql operation failed")
			obs.GraphQLOperation("internal")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			return
		}
		qe.Message = publicMessage(code, qe.Message)
		if qe.Extensions == nil {
			qe.Extensions = map[string]any{}
		}
		qe.Extensions["code"] = code
	}
	if len(resp.Errors) > 0 {
		obs.GraphQLOperation("error")
	} else {
		obs.GraphQLOperation("ok")
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type panicLogger struct{}

// LogPanic implements the graphql-go panic logger with the service logger.
func (panicLogger) LogPanic(ctx context.Context, value interface{}) {
	obs.LoggerFromContext(ctx).WithField("panic", value).Error("graphql resolver panic")
}

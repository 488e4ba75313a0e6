package graph

import (
	"errors"
	"strings"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/ids"
	"mentorgraph.org/internal/mentor"
)

// Extension codes reported in errors[].extensions.code.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	codeInternal        = ""
)

// classify maps a resolver error to an extension code. Unknown errors are internal.
func classify(err error) string {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		return CodeUnauthenticated
	case errors.Is(err, auth.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, mentor.ErrInvalidInput),
		errors.Is(err, ids.ErrInvalidID):
		return CodeBadUserInput
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, mentor.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, auth.ErrConflict),
		errors.Is(err, mentor.ErrConflict):
		return CodeConflict
	}
	return codeInternal
}

// classifyQueryError handles errors raised before or around resolvers as well. Parse,
// validation and variable coercion errors carry no resolver error and are client faults.
func classifyQueryError(qe *gqlerrors.QueryError) string {
	if qe.ResolverError != nil {
		return classify(qe.ResolverError)
	}
	if strings.HasPrefix(qe.Message, "panic occurred") {
		return codeInternal
	}
	return CodeBadUserInput
}

// publicMessage hides wrapped detail for authorization failures.
func publicMessage(code, msg string) string {
	switch code {
	case CodeUnauthenticated:
		return "authentication required"
	case CodeForbidden:
		return "forbidden"
	}
	return msg
}

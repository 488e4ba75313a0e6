package graph

import (
	"errors"
	"fmt"
	"testing"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"

	"mentorgraph.org/internal/auth"
	"mentorgraph.org/internal/ids"
	"mentorgraph.org/internal/mentor"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{auth.ErrUnauthenticated, CodeUnauthenticated},
		{fmt.Errorf("refresh: %w", auth.ErrInvalidToken), CodeUnauthenticated},
		{auth.ErrForbidden, CodeForbidden},
		{fmt.Errorf("mentor: %w", ids.ErrInvalidID), CodeBadUserInput},
		{mentor.ErrInvalidInput, CodeBadUserInput},
		{mentor.ErrNotFound, CodeNotFound},
		{auth.ErrConflict, CodeConflict},
		{errors.New("socket closed"), codeInternal},
	}
	for _, tc := range cases {
		if got := classify(tc.err); got != tc.want {
			t.Fatalf("classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestClassifyQueryError(t *testing.T) {
	if got := classifyQueryError(&gqlerrors.QueryError{Message: `Cannot query field "nope" on type "Query".`}); got != CodeBadUserInput {
		t.Fatalf("validation error classified as %q", got)
	}
	if got := classifyQueryError(&gqlerrors.QueryError{Message: "panic occurred: boom"}); got != codeInternal {
		t.Fatalf("panic classified as %q", got)
	}
	qe := &gqlerrors.QueryError{Message: "forbidden", ResolverError: auth.ErrForbidden}
	if got := classifyQueryError(qe); got != CodeForbidden {
		t.Fatalf("resolver error classified as %q", got)
	}
}

func TestPublicMessage(t *testing.T) {
	if got := publicMessage(CodeUnauthenticated, "refresh: invalid token"); got != "authentication required" {
		t.Fatalf("got %q", got)
	}
	if got := publicMessage(CodeNotFound, "mentor not found"); got != "mentor not found" {
		t.Fatalf("got %q", got)
	}
}

package ids

import (
	"errors"
	"fmt"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is returned when a client supplied identifier is not a valid document id.
var ErrInvalidID = errors.New("invalid id")

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier for request and trace correlation.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Parse converts a hex document id. It never invents an id for bad input.
func Parse(raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

// ParseOptional parses raw when present. An empty string yields nil.
func ParseOptional(raw *string) (*primitive.ObjectID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseAll parses every entry of raw, failing on the first invalid one.
func ParseAll(raw []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, r := range raw {
		id, err := Parse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Hex renders ids as hex strings.
func Hex(list []primitive.ObjectID) []string {
	out := make([]string, 0, len(list))
	for _, id := range list {
		out = append(out, id.Hex())
	}
	return out
}

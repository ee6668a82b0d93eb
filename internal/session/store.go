package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/opening-query/internal/view"
)

var ErrNotFound = errors.New("session not found")

const DefaultTTL = time.Hour

// Store persists form snapshots between requests. Load slides the entry's
// TTL; Exists does not.
type Store interface {
	Save(ctx context.Context, snap view.Snapshot) error
	Load(ctx context.Context, id string) (view.Snapshot, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh session identifier.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id looks like a session identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}

// Package store owns the gateway's single logical connection to the backing
// document store.
//
// The store itself is opaque. Backends (internal/store/mongo,
// internal/store/sqlite) implement the three narrow interfaces below and the
// Manager takes care of the lifecycle: lazy connect, index provisioning,
// handing out the snippet collection, and close.
package store

import (
	"context"

	"github.com/kastor/polyglot-gateway/internal/model"
)

// DatabaseName is the logical database namespace every backend selects.
const DatabaseName = "kastor_suite"

// SnippetsCollection is the name of the snippet collection (or table).
const SnippetsCollection = "snippets"

// Collection is a typed handle to the snippet collection.
type Collection interface {
	// EnsureIndexes provisions the createdAt-descending index. Safe to repeat.
	EnsureIndexes(ctx context.Context) error

	// Insert persists s and returns the store-assigned id.
	// s.ID is ignored.
	Insert(ctx context.Context, s model.Snippet) (string, error)

	// FindNewestFirst returns every snippet ordered by CreatedAt descending.
	// An empty collection yields an empty, non-nil slice.
	FindNewestFirst(ctx context.Context) ([]model.Snippet, error)
}

// Handle is a live connection to one database namespace.
type Handle interface {
	Snippets() Collection
	Close(ctx context.Context) error
}

// Dialer establishes new connections. Each successful Dial returns an
// independent Handle; the Manager makes sure it is called at most once at a time.
type Dialer interface {
	Dial(ctx context.Context) (Handle, error)
	// Name identifies the backend in logs and metrics, e.g. "mongodb".
	Name() string
}

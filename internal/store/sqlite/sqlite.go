// Package sqlite implements the store interfaces on an embedded SQLite file.
//
// It is the single-node stand-in for the document store: the database file is
// the namespace and the snippets table is the collection. Connection targets
// look like "sqlite://data/gateway.db" or "sqlite://:memory:".
//
// WHY AN EMBEDDED BACKEND?
// MongoDB is the production store, but a gateway started on a laptop or in CI
// should not need a database server. Pointing store.url at a sqlite:// target
// gives the same Create and List semantics from a single file, and the tests
// use it to run real round trips.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite. No C toolchain is needed to build the
// gateway, and cross-compiling stays a plain `GOOS=... go build`.
//
// CONNECTION POOL:
// sql.Open returns a *sql.DB, which is a pool of connections, not a single one.
// The pool is what DB wraps and what Close tears down. Anything that must hold
// for every connection (pragmas) therefore has to be in the DSN; see dsn.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// BLANK IMPORT:
	// The driver's init() registers itself with database/sql under the name
	// "sqlite". Nothing else from the package is used directly.
	_ "modernc.org/sqlite"

	"github.com/kastor/polyglot-gateway/internal/store"
)

// Scheme is the connection-target prefix handled by this backend.
const Scheme = "sqlite://"

const memoryPath = ":memory:"

// Dialer opens SQLite-backed handles for one database path.
type Dialer struct {
	path string
}

var _ store.Dialer = (*Dialer)(nil)

// NewDialer parses a "sqlite://<path>" target.
func NewDialer(target string) (*Dialer, error) {
	path, ok := strings.CutPrefix(target, Scheme)
	if !ok {
		return nil, fmt.Errorf("sqlite: target %q must start with %s", target, Scheme)
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite: target %q has no database path", target)
	}
	return &Dialer{path: path}, nil
}

// Name implements store.Dialer.
func (d *Dialer) Name() string { return "sqlite" }

// Dial opens the pool and pings it.
//
// sql.Open does not connect by itself, so the Ping is what surfaces a bad
// path or a permissions problem here rather than on the first query.
func (d *Dialer) Dial(ctx context.Context) (store.Handle, error) {
	conn, err := sql.Open("sqlite", d.dsn())
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would be a separate empty database.
	if d.path == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return &DB{conn: conn, snippets: &snippets{conn: conn}}, nil
}

// dsn builds the driver DSN.
//
// DSN PRAGMAS:
// A PRAGMA run through Exec only affects the one pooled connection it ran on;
// the next query may land on a fresh connection without it. modernc applies
// every `_pragma` parameter each time it opens a connection, so they hold
// pool-wide.
//
//   - busy_timeout(5000): concurrent writers wait up to 5s for the lock
//     instead of failing with SQLITE_BUSY
//   - journal_mode(WAL): list queries can read while an insert is in progress
//
// busy_timeout comes first so the journal_mode switch itself can wait for a lock.
//
// ":memory:" gets no pragmas: WAL does not apply to an in-memory database.
func (d *Dialer) dsn() string {
	if d.path == memoryPath {
		return d.path
	}
	return "file:" + d.path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// DB is a live SQLite handle.
type DB struct {
	conn     *sql.DB
	snippets *snippets
}

var _ store.Handle = (*DB)(nil)

// Snippets implements store.Handle.
func (db *DB) Snippets() store.Collection {
	return db.snippets
}

// Close closes the connection pool.
func (db *DB) Close(context.Context) error {
	return db.conn.Close()
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/kastor/polyglot-gateway/internal/model"
	"github.com/kastor/polyglot-gateway/internal/store"
)

type snippets struct {
	conn *sql.DB
}

var _ store.Collection = (*snippets)(nil)

// EnsureIndexes creates the snippets table and its created_at index.
// Both statements are IF NOT EXISTS, so running them on every connect is harmless.
//
// created_at holds unix nanoseconds: integer comparison keeps the ordering
// exact regardless of how the driver would format a DATETIME.
func (s *snippets) EnsureIndexes(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snippets (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			code       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_created_at ON snippets(created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippets table: %w", err)
	}
	return nil
}

// Insert stores the snippet under a freshly generated xid.
func (s *snippets) Insert(ctx context.Context, snippet model.Snippet) (string, error) {
	id := xid.New().String()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, title, code, created_at)
		 VALUES (?, ?, ?, ?)`,
		id,
		snippet.Title,
		snippet.Code,
		snippet.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: inserting snippet: %w", err)
	}

	return id, nil
}

// FindNewestFirst returns all snippets, newest first. rowid breaks ties so
// the order of equal timestamps is deterministic.
func (s *snippets) FindNewestFirst(ctx context.Context) ([]model.Snippet, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, title, code, created_at
		 FROM snippets
		 ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	result := make([]model.Snippet, 0)
	for rows.Next() {
		var (
			sn      model.Snippet
			created int64
		)
		if err := rows.Scan(&sn.ID, &sn.Title, &sn.Code, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		sn.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, sn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return result, nil
}

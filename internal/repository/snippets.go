// Package repository is the CRUD surface over the snippet collection.
//
// Snippets validates input, makes sure the store is connected, and turns
// store failures into apperror values the HTTP layer knows how to report.
// It never retries: a failed call is surfaced once and the caller decides.
package repository

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kastor/polyglot-gateway/internal/apperror"
	"github.com/kastor/polyglot-gateway/internal/model"
	"github.com/kastor/polyglot-gateway/internal/store"
)

// ErrTitleAndCodeRequired is the caller-facing validation message for Create.
const ErrTitleAndCodeRequired = "title and code are required"

// Connector is the part of *store.Manager the repository needs.
type Connector interface {
	EnsureConnected(ctx context.Context) (store.Handle, error)
	Collection() (store.Collection, error)
}

// Snippets implements create and list over a Connector.
type Snippets struct {
	conn   Connector
	logger *slog.Logger
	now    func() time.Time
}

// Option configures Snippets.
type Option func(*Snippets)

// WithClock replaces time.Now as the source of CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Snippets) {
		s.now = now
	}
}

// NewSnippets creates the repository.
func NewSnippets(conn Connector, logger *slog.Logger, opts ...Option) *Snippets {
	s := &Snippets{
		conn:   conn,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates title and code, stamps CreatedAt and inserts the snippet.
// It returns the store-assigned id.
//
// Both fields must be non-empty after trimming. The title is stored trimmed;
// the code is stored exactly as given since leading whitespace can matter.
func (s *Snippets) Create(ctx context.Context, title, code string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", ErrTitleAndCodeRequired)
	}
	if strings.TrimSpace(code) == "" {
		return "", apperror.ValidationFailed("code", ErrTitleAndCodeRequired)
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return "", err
	}

	snippet := model.Snippet{
		Title:     title,
		Code:      code,
		CreatedAt: s.now().UTC(),
	}

	id, err := coll.Insert(ctx, snippet)
	if err != nil {
		s.logger.Error("failed to insert snippet",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return "", apperror.StoreOperation("inserting snippet", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", id),
		slog.String("title", title),
	)
	return id, nil
}

// List returns every snippet, newest first. An empty collection gives an
// empty slice and no error.
func (s *Snippets) List(ctx context.Context) ([]model.Snippet, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	snippets, err := coll.FindNewestFirst(ctx)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, apperror.StoreOperation("listing snippets", err)
	}
	if snippets == nil {
		snippets = []model.Snippet{}
	}
	return snippets, nil
}

// collection connects if needed and returns the snippet collection.
func (s *Snippets) collection(ctx context.Context) (store.Collection, error) {
	if _, err := s.conn.EnsureConnected(ctx); err != nil {
		// The manager already logged the transport failure.
		return nil, err
	}

	coll, err := s.conn.Collection()
	if err != nil {
		// Close raced this request between the two calls.
		s.logger.Error("store handle missing after connect", slog.String("error", err.Error()))
		return nil, err
	}
	return coll, nil
}

package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kastor/polyglot-gateway/internal/apperror"
	"github.com/kastor/polyglot-gateway/internal/model"
	"github.com/kastor/polyglot-gateway/internal/store"
	"github.com/kastor/polyglot-gateway/internal/store/sqlite"
)

// =========================================================================
// TEST HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingDialer wraps a real dialer and counts Dial calls.
type countingDialer struct {
	store.Dialer
	dials atomic.Int32
}

func (d *countingDialer) Dial(ctx context.Context) (store.Handle, error) {
	d.dials.Add(1)
	return d.Dialer.Dial(ctx)
}

// newSQLiteManager returns a Manager over a fresh SQLite file.
func newSQLiteManager(t *testing.T) (*store.Manager, *countingDialer) {
	t.Helper()
	inner, err := sqlite.NewDialer(sqlite.Scheme + filepath.Join(t.TempDir(), "snippets.db"))
	require.NoError(t, err)

	d := &countingDialer{Dialer: inner}
	m := store.NewManager(d, discardLogger())
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m, d
}

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

// stubConnector fails or hands out a fixed collection.
type stubConnector struct {
	connectErr    error
	collectionErr error
	coll          store.Collection
}

func (c *stubConnector) EnsureConnected(context.Context) (store.Handle, error) {
	return nil, c.connectErr
}

func (c *stubConnector) Collection() (store.Collection, error) {
	if c.collectionErr != nil {
		return nil, c.collectionErr
	}
	return c.coll, nil
}

type brokenCollection struct{ err error }

func (b brokenCollection) EnsureIndexes(context.Context) error { return b.err }
func (b brokenCollection) Insert(context.Context, model.Snippet) (string, error) {
	return "", b.err
}
func (b brokenCollection) FindNewestFirst(context.Context) ([]model.Snippet, error) {
	return nil, b.err
}

// =========================================================================
// CREATE / LIST AGAINST A REAL STORE
// =========================================================================

func TestCreate_RoundTrip(t *testing.T) {
	m, _ := newSQLiteManager(t)
	repo := NewSnippets(m, discardLogger())
	ctx := context.Background()

	id, err := repo.Create(ctx, "t", "c")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "t", list[0].Title)
	assert.Equal(t, "c", list[0].Code)
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestCreate_AssignsCreatedAtFromClock(t *testing.T) {
	m, _ := newSQLiteManager(t)
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.FixedZone("X", 3600))
	repo := NewSnippets(m, discardLogger(), WithClock(func() time.Time { return at }))
	ctx := context.Background()

	_, err := repo.Create(ctx, "t", "c")
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, at.Equal(list[0].CreatedAt))
	assert.Equal(t, time.UTC, list[0].CreatedAt.Location())
}

func TestCreate_TrimsTitleKeepsCode(t *testing.T) {
	m, _ := newSQLiteManager(t)
	repo := NewSnippets(m, discardLogger())
	ctx := context.Background()

	_, err := repo.Create(ctx, "  spaced  ", "    indented()\n")
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "spaced", list[0].Title)
	assert.Equal(t, "    indented()\n", list[0].Code)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		code      string
		wantField string
	}{
		{name: "empty title", title: "", code: "c", wantField: "title"},
		{name: "empty code", title: "t", code: "", wantField: "code"},
		{name: "both empty", title: "", code: "", wantField: "title"},
		{name: "whitespace title", title: "   ", code: "c", wantField: "title"},
		{name: "whitespace code", title: "t", code: "\n\t ", wantField: "code"},
	}

	m, d := newSQLiteManager(t)
	repo := NewSnippets(m, discardLogger())
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.title, tt.code)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Equal(t, ErrTitleAndCodeRequired, appErr.Message)
		})
	}

	assert.EqualValues(t, 0, d.dials.Load(), "validation happens before any store access")

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "nothing persisted")
}

func TestList_Empty(t *testing.T) {
	m, _ := newSQLiteManager(t)
	repo := NewSnippets(m, discardLogger())

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestList_NewestFirst(t *testing.T) {
	m, _ := newSQLiteManager(t)
	repo := NewSnippets(m, discardLogger(),
		WithClock(stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"first", "second", "third", "fourth"} {
		id, err := repo.Create(ctx, title, "code")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(ids))
	for i, sn := range list {
		assert.Equal(t, ids[len(ids)-1-i], sn.ID)
	}
	assert.Equal(t, "fourth", list[0].Title)
	assert.Equal(t, "first", list[len(list)-1].Title)
}

func TestConcurrentFirstUse_SingleConnection(t *testing.T) {
	m, d := newSQLiteManager(t)
	repo := NewSnippets(m, discardLogger())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, "t", "c")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, d.dials.Load())

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)
}

// =========================================================================
// FAILURE POLICY
// =========================================================================

func TestCreate_ConnectionFailure(t *testing.T) {
	conn := &stubConnector{connectErr: apperror.ConnectionFailed("mongodb", errors.New("refused"))}
	repo := NewSnippets(conn, discardLogger())

	_, err := repo.Create(context.Background(), "t", "c")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrConnection)
}

func TestList_ConnectionFailure(t *testing.T) {
	conn := &stubConnector{connectErr: apperror.ConnectionFailed("mongodb", errors.New("refused"))}
	repo := NewSnippets(conn, discardLogger())

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrConnection)
}

func TestStoreOperationFailures(t *testing.T) {
	cause := errors.New("disk I/O error")
	conn := &stubConnector{coll: brokenCollection{err: cause}}
	repo := NewSnippets(conn, discardLogger())
	ctx := context.Background()

	_, err := repo.Create(ctx, "t", "c")
	assert.ErrorIs(t, err, apperror.ErrStoreOperation)
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "disk")

	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, apperror.ErrStoreOperation)
	assert.ErrorIs(t, err, cause)
}

func TestNotConnectedPropagates(t *testing.T) {
	conn := &stubConnector{collectionErr: apperror.NotConnected()}
	repo := NewSnippets(conn, discardLogger())

	_, err := repo.List(context.Background())
	assert.ErrorIs(t, err, apperror.ErrNotConnected)
}

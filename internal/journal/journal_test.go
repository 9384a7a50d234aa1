package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func moved(source string) Entry {
	return Entry{
		EventID:     "evt-" + filepath.Base(source),
		Origin:      "watch",
		Source:      source,
		Destination: filepath.Join("/dl/PDF", filepath.Base(source)),
		Category:    "PDF",
		Resolution:  "seed",
		Status:      "relocated",
	}
}

func failed(source string) Entry {
	e := moved(source)
	e.Status = "relocate_failed"
	e.Error = "permission denied"
	e.Failed = true
	return e
}

func TestOpen_CreatesDirectoryAndSchema(t *testing.T) {
	// Given a path in a missing directory
	path := filepath.Join(t.TempDir(), "a", "b", "journal.db")

	// When opening the journal
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	// Then it is usable and empty
	assert.Equal(t, path, s.Path())
	entries, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(ctx, moved("/dl/a.pdf"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/dl/a.pdf", entries[0].Source)
}

func TestRecord_RoundTrip(t *testing.T) {
	// Given a journal
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 15, 30, 123, time.UTC)
	e := failed("/dl/a.pdf")
	e.CreatedAt = at

	// When recording and reading back
	id, err := s.Record(ctx, e)
	require.NoError(t, err)
	got, err := s.Get(ctx, id)
	require.NoError(t, err)

	// Then every field survives
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "evt-a.pdf", got.EventID)
	assert.Equal(t, "watch", got.Origin)
	assert.Equal(t, "/dl/a.pdf", got.Source)
	assert.Equal(t, "/dl/PDF/a.pdf", got.Destination)
	assert.Equal(t, "PDF", got.Category)
	assert.Equal(t, "seed", got.Resolution)
	assert.Equal(t, "relocate_failed", got.Status)
	assert.Equal(t, "permission denied", got.Error)
	assert.True(t, got.Failed)
	assert.False(t, got.Retried)
	assert.True(t, at.Equal(got.CreatedAt), "created_at %v", got.CreatedAt)
}

func TestRecord_DefaultsCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	before := time.Now()

	id, err := s.Record(ctx, moved("/dl/a.pdf"))
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.Before(before))
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Record(ctx, moved("/dl/"+name+".pdf"))
		require.NoError(t, err)
	}

	entries, err := s.List(ctx, 2)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "/dl/c.pdf", entries[0].Source)
	assert.Equal(t, "/dl/b.pdf", entries[1].Source)
}

func TestFailed_ExcludesMovedAndRetried(t *testing.T) {
	// Given moved, failed and retried entries
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Record(ctx, moved("/dl/ok.pdf"))
	require.NoError(t, err)
	first, err := s.Record(ctx, failed("/dl/first.pdf"))
	require.NoError(t, err)
	second, err := s.Record(ctx, failed("/dl/second.pdf"))
	require.NoError(t, err)
	_, err = s.Record(ctx, failed("/dl/third.pdf"))
	require.NoError(t, err)

	// When one failure is marked retried
	require.NoError(t, s.MarkRetried(ctx, first))

	// Then Failed lists the rest oldest first
	entries, err := s.Failed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, "/dl/third.pdf", entries[1].Source)

	got, err := s.Get(ctx, first)
	require.NoError(t, err)
	assert.True(t, got.Retried)
}

func TestMarkRetried_Empty(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.MarkRetried(context.Background()))
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), 42)

	require.Error(t, err)
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeInvalidInput))
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, e := range []Entry{moved("/dl/a.pdf"), moved("/dl/b.pdf"), failed("/dl/c.pdf")} {
		_, err := s.Record(ctx, e)
		require.NoError(t, err)
	}

	counts, err := s.Counts(ctx)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"relocated": 2, "relocate_failed": 1}, counts)
}

func TestRecord_TrimsToMaxEntries(t *testing.T) {
	// Given a journal capped at three rows
	s := openTestStore(t, WithMaxEntries(3))
	ctx := context.Background()

	// When five entries are recorded
	for i := 0; i < 5; i++ {
		_, err := s.Record(ctx, moved(fmt.Sprintf("/dl/%d.pdf", i)))
		require.NoError(t, err)
	}

	// Then only the newest three remain
	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "/dl/4.pdf", entries[0].Source)
	assert.Equal(t, "/dl/2.pdf", entries[2].Source)
}

func TestRecord_Concurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Record(ctx, moved(fmt.Sprintf("/dl/%d.pdf", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, counts["relocated"])
}

func TestClose_Idempotent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Record(context.Background(), moved("/dl/a.pdf"))
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeJournalFailed))
}

func TestOpen_InvalidPath(t *testing.T) {
	// Given a directory where the database file should be
	dir := t.TempDir()

	// When opening it as a database
	_, err := Open(dir)

	// Then a journal error is returned
	require.Error(t, err)
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeJournalFailed))
}

package lock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

func TestForSource_PathIsStablePerSource(t *testing.T) {
	dir := t.TempDir()

	a := ForSource(dir, "/home/me/Downloads")
	b := ForSource(dir, "/home/me/Downloads/")
	c := ForSource(dir, "/home/me/Desktop")

	assert.Equal(t, a.Path(), b.Path())
	assert.NotEqual(t, a.Path(), c.Path())
	assert.Equal(t, dir, filepath.Dir(a.Path()))
	assert.True(t, strings.HasSuffix(a.Path(), ".lock"))
}

func TestAcquireRelease(t *testing.T) {
	// Given a lock in a directory that does not exist yet
	dir := filepath.Join(t.TempDir(), "locks")
	l := ForSource(dir, "/dl")

	// When acquiring it
	require.NoError(t, l.Acquire())

	// Then the lock file names this process
	assert.True(t, l.IsLocked())
	assert.Contains(t, l.Holder(), "pid=")
	assert.Contains(t, l.Holder(), "source=/dl")

	require.NoError(t, l.Release())
	assert.False(t, l.IsLocked())
}

func TestAcquire_Contended(t *testing.T) {
	// Given one observer holding the lock
	dir := t.TempDir()
	first := ForSource(dir, "/dl")
	require.NoError(t, first.Acquire())
	defer first.Release()

	// When a second observer tries the same source
	second := ForSource(dir, "/dl")
	err := second.Acquire()

	// Then it is refused with the holder named
	require.Error(t, err)
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeSourceLocked))
	assert.False(t, second.IsLocked())
	oe, ok := oerrors.As(err)
	require.True(t, ok)
	assert.Contains(t, oe.Details["holder"], "source=/dl")
}

func TestAcquire_AfterRelease(t *testing.T) {
	dir := t.TempDir()
	first := ForSource(dir, "/dl")
	require.NoError(t, first.Acquire())
	require.NoError(t, first.Release())

	second := ForSource(dir, "/dl")
	require.NoError(t, second.Acquire())
	defer second.Release()
}

func TestAcquire_DifferentSources(t *testing.T) {
	dir := t.TempDir()
	a := ForSource(dir, "/dl")
	b := ForSource(dir, "/desk")

	require.NoError(t, a.Acquire())
	defer a.Release()
	require.NoError(t, b.Acquire())
	defer b.Release()
}

func TestAcquire_Twice(t *testing.T) {
	l := ForSource(t.TempDir(), "/dl")
	require.NoError(t, l.Acquire())
	defer l.Release()

	assert.NoError(t, l.Acquire())
}

func TestRelease_WithoutAcquire(t *testing.T) {
	l := ForSource(t.TempDir(), "/dl")

	assert.NoError(t, l.Release())
	assert.NoError(t, l.Release())
}

func TestAcquire_LockDirIsFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := ForSource(blocker, "/dl").Acquire()

	require.Error(t, err)
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeSourceLocked))
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startPolling(t *testing.T, opts Options, dir string) *PollingWatcher {
	t.Helper()
	opts.PollInterval = 30 * time.Millisecond
	w, err := NewPollingWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Start(ctx, dir) }()

	// Wait for the baseline scan.
	time.Sleep(80 * time.Millisecond)
	return w
}

func nextPollEvent(t *testing.T, w *PollingWatcher, match func(FileEvent) bool) FileEvent {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "events channel closed")
			if match(ev) {
				return ev
			}
		case err := <-w.Errors():
			t.Fatalf("unexpected error: %v", err)
		case <-deadline:
			t.Fatal("timeout waiting for polling event")
		}
	}
}

func TestPollingWatcher_DetectsFileCreation(t *testing.T) {
	// Given: a polled directory
	dir := t.TempDir()
	w := startPolling(t, Options{}, dir)
	defer w.Stop()

	// When: a file appears
	file := filepath.Join(dir, "new.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	// Then: a CREATE with the absolute path is reported
	ev := nextPollEvent(t, w, func(e FileEvent) bool { return e.Operation == OpCreate })
	assert.Equal(t, file, ev.Path)
	assert.False(t, ev.IsDir)
}

func TestPollingWatcher_ExistingFilesNotReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("x"), 0o644))

	w := startPolling(t, Options{}, dir)
	defer w.Stop()

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %s %s", ev.Operation, ev.Path)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestPollingWatcher_DetectsModification(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "growing.iso")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	w := startPolling(t, Options{}, dir)
	defer w.Stop()

	require.NoError(t, os.WriteFile(file, []byte("abcdef"), 0o644))

	ev := nextPollEvent(t, w, func(e FileEvent) bool { return e.Operation == OpModify })
	assert.Equal(t, file, ev.Path)
}

func TestPollingWatcher_DetectsDeletion(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	w := startPolling(t, Options{}, dir)
	defer w.Stop()

	require.NoError(t, os.Remove(file))

	ev := nextPollEvent(t, w, func(e FileEvent) bool { return e.Operation == OpDelete })
	assert.Equal(t, file, ev.Path)
}

func TestPollingWatcher_NonRecursiveIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "PDF")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	w := startPolling(t, Options{Recursive: false}, dir)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.pdf"), []byte("x"), 0o644))

	ev := nextPollEvent(t, w, func(e FileEvent) bool { return e.Operation == OpCreate })
	assert.Equal(t, filepath.Join(dir, "top.pdf"), ev.Path)
}

func TestPollingWatcher_RecursiveSeesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "inbox")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	w := startPolling(t, Options{Recursive: true}, dir)
	defer w.Stop()

	nested := filepath.Join(sub, "nested.pdf")
	require.NoError(t, os.WriteFile(nested, []byte("x"), 0o644))

	ev := nextPollEvent(t, w, func(e FileEvent) bool { return e.Path == nested })
	assert.Equal(t, OpCreate, ev.Operation)
}

func TestPollingWatcher_IgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	w := startPolling(t, Options{IgnorePatterns: []string{"*.tmp"}}, dir)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	ev := nextPollEvent(t, w, func(e FileEvent) bool { return true })
	assert.Equal(t, filepath.Join(dir, "keep.txt"), ev.Path)
}

func TestPollingWatcher_InvalidIgnorePattern(t *testing.T) {
	_, err := NewPollingWatcher(Options{IgnorePatterns: []string{"[z-a]"}})
	require.Error(t, err)
}

func TestPollingWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewPollingWatcher(Options{})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	_, ok := <-w.Events()
	assert.False(t, ok)
}

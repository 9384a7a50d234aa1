package relocate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRelocate_MovesIntoCategoryDirectory(t *testing.T) {
	// Given: a file in the source directory
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "report.PDF")
	writeFile(t, file, "pdf")

	r := New(dst, WithLogger(quietLogger()))

	// When: relocating it
	out, err := r.Relocate(context.Background(), file, "PDF")

	// Then: it exists only at the destination
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "PDF", "report.PDF"), out.Destination)
	assert.False(t, out.Linked)
	assert.NoFileExists(t, file)

	data, err := os.ReadFile(out.Destination)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))
}

func TestRelocate_ExistingCategoryDirectory(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "AutoCAD"), 0o755))

	r := New(dst, WithLogger(quietLogger()))
	for _, name := range []string{"a.dwg", "b.dwg"} {
		file := filepath.Join(src, name)
		writeFile(t, file, name)
		_, err := r.Relocate(context.Background(), file, "AutoCAD")
		require.NoError(t, err)
	}

	assert.FileExists(t, filepath.Join(dst, "AutoCAD", "a.dwg"))
	assert.FileExists(t, filepath.Join(dst, "AutoCAD", "b.dwg"))
}

func TestRelocate_OverwritesExistingTarget(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(dst, "other", "notes.txt"), "old")
	file := filepath.Join(src, "notes.txt")
	writeFile(t, file, "new")

	r := New(dst, WithLogger(quietLogger()))
	out, err := r.Relocate(context.Background(), file, "other")
	require.NoError(t, err)

	data, err := os.ReadFile(out.Destination)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestRelocate_MissingSourceIsRenameError(t *testing.T) {
	dst := t.TempDir()
	r := New(dst, WithLogger(quietLogger()))

	_, err := r.Relocate(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), "PDF")
	require.Error(t, err)
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeRenameFailed))
}

func TestRelocate_MkdirFailure(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	// A regular file where the category directory should go.
	writeFile(t, filepath.Join(dst, "PDF"), "blocker")
	file := filepath.Join(src, "x.pdf")
	writeFile(t, file, "x")

	r := New(dst, WithLogger(quietLogger()))
	_, err := r.Relocate(context.Background(), file, "PDF")
	require.Error(t, err)
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeMkdirFailed))
	assert.FileExists(t, file)
}

func TestRelocate_CancelledContext(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "x.pdf")
	writeFile(t, file, "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(t.TempDir(), WithLogger(quietLogger()))
	_, err := r.Relocate(ctx, file, "PDF")
	require.ErrorIs(t, err, context.Canceled)
	assert.FileExists(t, file)
}

func TestRelocate_TransientLinkExpires(t *testing.T) {
	// Given: a relocator with a short link lifetime
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "photo.jpg")
	writeFile(t, file, "img")

	r := New(dst, WithLinkDuration(50*time.Millisecond), WithLogger(quietLogger()))
	defer r.Close()

	// When: relocating
	out, err := r.Relocate(context.Background(), file, "Images")
	require.NoError(t, err)
	require.True(t, out.Linked)

	// Then: a symlink points at the new location
	target, err := os.Readlink(file)
	require.NoError(t, err)
	assert.Equal(t, out.Destination, target)
	assert.Equal(t, 1, r.PendingLinks())

	// And: it disappears after the lifetime while the moved file stays
	assert.Eventually(t, func() bool {
		_, err := os.Lstat(file)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
	assert.FileExists(t, out.Destination)
	assert.Equal(t, 0, r.PendingLinks())
}

func TestRelocate_LinkReplacedByRealFileIsKept(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "doc.txt")
	writeFile(t, file, "v1")

	r := New(dst, WithLinkDuration(50*time.Millisecond), WithLogger(quietLogger()))
	defer r.Close()

	_, err := r.Relocate(context.Background(), file, "Text")
	require.NoError(t, err)

	// The user replaces the link with a real file before it expires.
	require.NoError(t, os.Remove(file))
	writeFile(t, file, "v2")

	time.Sleep(150 * time.Millisecond)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestRelocate_LinkFailureKeepsMovedFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "a.pdf")
	writeFile(t, file, "a")

	r := New(dst, WithLinkDuration(time.Hour), WithLogger(quietLogger()))
	defer r.Close()
	r.symlink = func(oldname, newname string) error {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: os.ErrPermission}
	}

	out, err := r.Relocate(context.Background(), file, "PDF")
	require.Error(t, err)
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeLinkFailed))
	assert.False(t, out.Linked)
	assert.Equal(t, filepath.Join(dst, "PDF", "a.pdf"), out.Destination)
	assert.FileExists(t, out.Destination)
	assert.Equal(t, 0, r.PendingLinks())
}

func TestClose_RemovesPendingLinks(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	r := New(dst, WithLinkDuration(time.Hour), WithLogger(quietLogger()))

	var links []string
	for _, name := range []string{"a.pdf", "b.zip"} {
		file := filepath.Join(src, name)
		writeFile(t, file, name)
		out, err := r.Relocate(context.Background(), file, "X")
		require.NoError(t, err)
		require.True(t, out.Linked)
		links = append(links, file)
	}
	require.Equal(t, 2, r.PendingLinks())

	require.NoError(t, r.Close())

	for _, l := range links {
		_, err := os.Lstat(l)
		assert.True(t, os.IsNotExist(err), "link %s should be removed", l)
	}
	assert.Equal(t, 0, r.PendingLinks())
	assert.FileExists(t, filepath.Join(dst, "X", "a.pdf"))
}

func TestTarget(t *testing.T) {
	r := New("/dest")
	assert.Equal(t, filepath.Join("/dest", "PDF", "r.pdf"), r.Target("/src/sub/r.pdf", "PDF"))
}

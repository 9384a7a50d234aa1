// Package lock keeps a single observer per source directory using
// cross-process file locks.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

// SourceLock is an exclusive lock on one source directory. The lock file
// lives outside the source so the watcher never sees it.
type SourceLock struct {
	path   string
	source string
	flock  *flock.Flock
	locked bool
}

// ForSource returns the lock for source, kept under dir.
func ForSource(dir, source string) *SourceLock {
	sum := sha256.Sum256([]byte(filepath.Clean(source)))
	path := filepath.Join(dir, hex.EncodeToString(sum[:8])+".lock")
	return &SourceLock{
		path:   path,
		source: source,
		flock:  flock.New(path),
	}
}

// Acquire takes the lock without blocking. If another process holds it the
// error has code ErrCodeSourceLocked and names the holder when known.
func (l *SourceLock) Acquire() error {
	if l.locked {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return oerrors.New(oerrors.ErrCodeSourceLocked, "failed to create lock directory", err).
			WithDetail("path", l.path)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return oerrors.New(oerrors.ErrCodeSourceLocked, "failed to acquire lock", err).
			WithDetail("path", l.path)
	}
	if !acquired {
		e := oerrors.New(oerrors.ErrCodeSourceLocked, "another observer is already watching "+l.source, nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop the other observer or watch a different directory")
		if holder := l.Holder(); holder != "" {
			e = e.WithDetail("holder", holder)
		}
		return e
	}

	l.locked = true
	// Diagnostics only; the flock is what excludes other processes.
	_ = os.WriteFile(l.path, []byte(fmt.Sprintf("pid=%d source=%s\n", os.Getpid(), l.source)), 0o644)
	return nil
}

// Release drops the lock. It is safe to call on an unlocked SourceLock.
func (l *SourceLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Holder returns the diagnostic line written by the current holder.
func (l *SourceLock) Holder() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Path returns the lock file path.
func (l *SourceLock) Path() string {
	return l.path
}

// IsLocked reports whether this SourceLock holds the lock.
func (l *SourceLock) IsLocked() bool {
	return l.locked
}

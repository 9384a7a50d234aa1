// Package relocate moves files into per-category directories under a
// destination root and optionally leaves a short-lived symlink at the old
// location.
package relocate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

// Outcome describes a completed move.
type Outcome struct {
	Source      string
	Destination string
	Category    string
	// Linked is true when a transient symlink was left at Source.
	Linked bool
	// LinkExpires is when the symlink is scheduled for removal.
	LinkExpires time.Time
}

// Option configures a Relocator.
type Option func(*Relocator)

// WithLinkDuration leaves a symlink at the source path for d after each move.
// Zero disables links.
func WithLinkDuration(d time.Duration) Option {
	return func(r *Relocator) {
		if d > 0 {
			r.linkDuration = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relocator) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDirMode sets the permission bits for created category directories.
func WithDirMode(mode os.FileMode) Option {
	return func(r *Relocator) {
		r.dirMode = mode
	}
}

// Relocator moves files to destRoot/<category>/<base name>.
type Relocator struct {
	destRoot     string
	linkDuration time.Duration
	dirMode      os.FileMode
	logger       *slog.Logger
	symlink      func(oldname, newname string) error

	mu     sync.Mutex
	links  map[string]*link
	closed bool
}

// link is a pending transient symlink.
type link struct {
	target string
	timer  *time.Timer
}

// New creates a relocator rooted at destRoot.
func New(destRoot string, opts ...Option) *Relocator {
	r := &Relocator{
		destRoot: destRoot,
		dirMode:  0o755,
		logger:   slog.Default(),
		symlink:  os.Symlink,
		links:    make(map[string]*link),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DestinationRoot returns the directory categories are created under.
func (r *Relocator) DestinationRoot() string {
	return r.destRoot
}

// Target returns the path src would be moved to for category.
func (r *Relocator) Target(src, category string) string {
	return filepath.Join(r.destRoot, category, filepath.Base(src))
}

// Relocate moves src into the directory for category.
//
// The category directory is created first. The move is a single rename, so
// the file is never present in both places. An existing file at the target
// is replaced. A rename failure leaves src untouched.
//
// When a link duration is configured a symlink is created at src pointing at
// the new location. If that fails the returned Outcome is still valid and the
// error carries ErrCodeLinkFailed.
func (r *Relocator) Relocate(ctx context.Context, src, category string) (Outcome, error) {
	out := Outcome{Source: src, Category: category}

	if err := ctx.Err(); err != nil {
		return out, err
	}

	dir := filepath.Join(r.destRoot, category)
	if err := os.MkdirAll(dir, r.dirMode); err != nil {
		return out, oerrors.New(oerrors.ErrCodeMkdirFailed, "create category directory", err).
			WithDetail("path", dir)
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.Rename(src, dst); err != nil {
		return out, oerrors.New(oerrors.ErrCodeRenameFailed, "move file", err).
			WithDetail("source", src).
			WithDetail("destination", dst)
	}
	out.Destination = dst

	r.logger.Info("file relocated",
		slog.String("source", src),
		slog.String("destination", dst),
		slog.String("category", category))

	if r.linkDuration <= 0 {
		return out, nil
	}

	if err := r.symlink(dst, src); err != nil {
		return out, oerrors.New(oerrors.ErrCodeLinkFailed, "create transient link", err).
			WithDetail("link", src).
			WithDetail("target", dst)
	}

	out.Linked = true
	out.LinkExpires = time.Now().Add(r.linkDuration)
	r.schedule(src, dst)

	r.logger.Debug("transient link created",
		slog.String("link", src),
		slog.String("target", dst),
		slog.Duration("ttl", r.linkDuration))

	return out, nil
}

func (r *Relocator) schedule(path, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.removeLink(path, target)
		return
	}

	if prev, ok := r.links[path]; ok {
		prev.timer.Stop()
	}

	l := &link{target: target}
	l.timer = time.AfterFunc(r.linkDuration, func() {
		r.expire(path, l)
	})
	r.links[path] = l
}

func (r *Relocator) expire(path string, l *link) {
	r.mu.Lock()
	if cur, ok := r.links[path]; !ok || cur != l {
		r.mu.Unlock()
		return
	}
	delete(r.links, path)
	r.mu.Unlock()

	r.removeLink(path, l.target)
}

// removeLink deletes path only while it is still a symlink to target.
func (r *Relocator) removeLink(path, target string) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return
	}
	if dest, err := os.Readlink(path); err != nil || dest != target {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove transient link",
			slog.String("link", path),
			slog.String("error", err.Error()))
		return
	}
	r.logger.Debug("transient link removed", slog.String("link", path))
}

// PendingLinks returns the number of links awaiting removal.
func (r *Relocator) PendingLinks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// Close stops all timers and removes every outstanding link.
// Links created after Close are removed immediately.
func (r *Relocator) Close() error {
	r.mu.Lock()
	pending := r.links
	r.links = make(map[string]*link)
	r.closed = true
	r.mu.Unlock()

	for path, l := range pending {
		l.timer.Stop()
		r.removeLink(path, l.target)
	}
	return nil
}

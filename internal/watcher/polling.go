package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ickyicky/folder-observer/internal/ignore"
)

// PollingWatcher detects changes by periodically listing the directory.
// Used when fsnotify is unavailable or ForcePolling is set.
type PollingWatcher struct {
	interval  time.Duration
	recursive bool
	ignore    *ignore.Matcher
	logger    *slog.Logger
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
	rootPath  string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// NewPollingWatcher creates a polling watcher from opts.
func NewPollingWatcher(opts Options) (*PollingWatcher, error) {
	opts = opts.WithDefaults()
	m, err := ignore.New(opts.IgnorePatterns...)
	if err != nil {
		return nil, err
	}
	return newPollingWatcher(opts, m), nil
}

func newPollingWatcher(opts Options, m *ignore.Matcher) *PollingWatcher {
	return &PollingWatcher{
		interval:  opts.PollInterval,
		recursive: opts.Recursive,
		ignore:    m,
		logger:    opts.Logger,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 256),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

// Start takes a baseline listing of path and then polls until stopped.
// Files present at start are not reported.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}

	p.mu.Lock()
	p.rootPath = absPath
	state, err := p.list()
	if err == nil {
		p.fileState = state
	}
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// Stop stops the polling watcher.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// list snapshots the watched tree. Must be called with lock held.
func (p *PollingWatcher) list() (map[string]fileSnapshot, error) {
	state := make(map[string]fileSnapshot)

	if !p.recursive {
		entries, err := os.ReadDir(p.rootPath)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p.record(state, filepath.Join(p.rootPath, e.Name()), e)
		}
		return state, nil
	}

	err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == p.rootPath {
				return err
			}
			return nil
		}
		if path == p.rootPath {
			return nil
		}
		if !p.record(state, path, d) && d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	return state, err
}

// record adds path to state unless it is ignored.
func (p *PollingWatcher) record(state map[string]fileSnapshot, path string, d fs.DirEntry) bool {
	rel, err := filepath.Rel(p.rootPath, path)
	if err != nil || p.ignore.Match(rel, d.IsDir()) {
		return false
	}
	info, err := d.Info()
	if err != nil {
		return false
	}
	state[path] = fileSnapshot{
		modTime: info.ModTime(),
		size:    info.Size(),
		isDir:   d.IsDir(),
	}
	return true
}

// detectChanges compares the current listing with the previous one.
func (p *PollingWatcher) detectChanges() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.list()
	if err != nil {
		return fmt.Errorf("list directory for changes: %w", err)
	}

	now := time.Now()
	for path, snap := range current {
		prev, existed := p.fileState[path]
		switch {
		case !existed:
			p.emitEvent(FileEvent{Path: path, Operation: OpCreate, IsDir: snap.isDir, Timestamp: now})
		case !snap.isDir && (prev.modTime != snap.modTime || prev.size != snap.size):
			p.emitEvent(FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}

	for path, snap := range p.fileState {
		if _, ok := current[path]; !ok {
			p.emitEvent(FileEvent{Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: now})
		}
	}

	p.fileState = current
	return nil
}

// emitEvent sends an event to the events channel.
// Must be called with lock held.
func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.events <- event:
	default:
		p.logger.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()),
		)
	}
}

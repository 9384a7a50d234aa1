package watcher

import (
	"context"
	"log/slog"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory appeared.
	OpCreate Operation = iota
	// OpModify indicates an existing file was written to.
	OpModify
	// OpDelete indicates a file or directory was removed.
	OpDelete
	// OpRename indicates a file or directory was moved away from Path.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Arrival reports whether the operation may have left a file at Path.
func (op Operation) Arrival() bool {
	return op == OpCreate || op == OpModify
}

// FileEvent represents a file system event.
type FileEvent struct {
	// Path is the absolute path of the file or directory.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// IsDir indicates if the event is for a directory.
	IsDir bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher delivers debounced batches of file events for one directory.
type Watcher interface {
	// Start watches path until Stop is called or ctx is cancelled.
	Start(ctx context.Context, path string) error

	// Stop releases resources. Safe to call multiple times.
	Stop() error

	// Events returns batches of coalesced events.
	// The channel is closed when the watcher stops.
	Events() <-chan []FileEvent

	// Errors returns non-fatal watcher errors.
	Errors() <-chan error
}

// Options configures the watcher behavior.
type Options struct {
	// Recursive watches subdirectories, including ones created later.
	Recursive bool

	// DebounceWindow is the time to wait before emitting coalesced events.
	// Default: 200ms
	DebounceWindow time.Duration

	// PollInterval is the interval for polling mode.
	// Default: 5s
	PollInterval time.Duration

	// ForcePolling skips fsnotify entirely. Useful on network mounts.
	ForcePolling bool

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 100
	EventBufferSize int

	// IgnorePatterns are gitignore-style globs relative to the watched root.
	IgnorePatterns []string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 100,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

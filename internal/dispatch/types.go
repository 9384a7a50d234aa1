package dispatch

import (
	"context"
	"time"

	"github.com/ickyicky/folder-observer/internal/category"
	"github.com/ickyicky/folder-observer/internal/relocate"
)

// Origin tells what produced an event.
type Origin string

const (
	// OriginWatch is a live file system notification.
	OriginWatch Origin = "watch"
	// OriginSweep is a file found by the startup sweep.
	OriginSweep Origin = "sweep"
	// OriginRetry is a manual re-drive of a failed relocation.
	OriginRetry Origin = "retry"
)

// Event is a request to handle one path.
type Event struct {
	// Path is the absolute path of the file.
	Path string
	// ID correlates log lines and journal entries. Generated when empty.
	ID string
	// Origin is what produced the event.
	Origin Origin
}

// Status is the final state of a handled event.
type Status string

const (
	StatusSkippedNotRegular Status = "skipped_not_regular"
	StatusSkippedExcluded   Status = "skipped_excluded"
	StatusSkippedInFlight   Status = "skipped_in_flight"
	StatusSkippedCancelled  Status = "skipped_cancelled"
	StatusRelocated         Status = "relocated"
	StatusRelocateFailed    Status = "relocate_failed"
	StatusLinkFailed        Status = "link_failed"
)

// Moved reports whether the file ended up at its destination.
func (s Status) Moved() bool {
	return s == StatusRelocated || s == StatusLinkFailed
}

// Skipped reports whether the event was ignored before any work was done.
func (s Status) Skipped() bool {
	switch s {
	case StatusSkippedNotRegular, StatusSkippedExcluded, StatusSkippedInFlight, StatusSkippedCancelled:
		return true
	}
	return false
}

// Result describes what happened to an event.
type Result struct {
	Event      Event
	Status     Status
	Resolution category.Resolution
	Outcome    relocate.Outcome
	// Err is set for relocate_failed and link_failed.
	Err error
	// Pattern is the exclusion pattern that matched, for skipped_excluded.
	Pattern  string
	Started  time.Time
	Duration time.Duration
}

// Resolver maps an extension to a category.
type Resolver interface {
	Resolve(ctx context.Context, ext string) category.Resolution
}

// Relocator moves a file into a category directory.
type Relocator interface {
	Relocate(ctx context.Context, src, category string) (relocate.Outcome, error)
}

// Recorder persists the outcome of handled events.
type Recorder interface {
	Record(ctx context.Context, r Result) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, r Result) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, r Result) error {
	return f(ctx, r)
}

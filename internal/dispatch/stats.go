package dispatch

import (
	"log/slog"
	"sync/atomic"
)

// Stats counts handled events by status.
type Stats struct {
	Received       uint64 `json:"received"`
	Relocated      uint64 `json:"relocated"`
	RelocateFailed uint64 `json:"relocate_failed"`
	LinkFailed     uint64 `json:"link_failed"`
	Excluded       uint64 `json:"excluded"`
	NotRegular     uint64 `json:"not_regular"`
	InFlight       uint64 `json:"in_flight"`
	Cancelled      uint64 `json:"cancelled"`
}

type counters struct {
	received       atomic.Uint64
	relocated      atomic.Uint64
	relocateFailed atomic.Uint64
	linkFailed     atomic.Uint64
	excluded       atomic.Uint64
	notRegular     atomic.Uint64
	inFlight       atomic.Uint64
	cancelled      atomic.Uint64
}

func (c *counters) observe(s Status) {
	c.received.Add(1)
	switch s {
	case StatusRelocated:
		c.relocated.Add(1)
	case StatusRelocateFailed:
		c.relocateFailed.Add(1)
	case StatusLinkFailed:
		c.linkFailed.Add(1)
	case StatusSkippedExcluded:
		c.excluded.Add(1)
	case StatusSkippedNotRegular:
		c.notRegular.Add(1)
	case StatusSkippedInFlight:
		c.inFlight.Add(1)
	case StatusSkippedCancelled:
		c.cancelled.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Received:       c.received.Load(),
		Relocated:      c.relocated.Load(),
		RelocateFailed: c.relocateFailed.Load(),
		LinkFailed:     c.linkFailed.Load(),
		Excluded:       c.excluded.Load(),
		NotRegular:     c.notRegular.Load(),
		InFlight:       c.inFlight.Load(),
		Cancelled:      c.cancelled.Load(),
	}
}

// LogValue renders the stats as a slog group.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("received", s.Received),
		slog.Uint64("relocated", s.Relocated),
		slog.Uint64("relocate_failed", s.RelocateFailed),
		slog.Uint64("link_failed", s.LinkFailed),
		slog.Uint64("excluded", s.Excluded),
		slog.Uint64("not_regular", s.NotRegular),
		slog.Uint64("in_flight", s.InFlight),
		slog.Uint64("cancelled", s.Cancelled),
	)
}

package cmd

import (
	"context"
	"log/slog"

	"github.com/ickyicky/folder-observer/internal/category"
	"github.com/ickyicky/folder-observer/internal/config"
	"github.com/ickyicky/folder-observer/internal/dispatch"
	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/filter"
	"github.com/ickyicky/folder-observer/internal/journal"
	"github.com/ickyicky/folder-observer/internal/lock"
	"github.com/ickyicky/folder-observer/internal/relocate"
)

// app is the wired pipeline for one source directory.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	lock       *lock.SourceLock
	journal    *journal.Store
	resolver   *category.Resolver
	relocator  *relocate.Relocator
	dispatcher *dispatch.Dispatcher
}

// appOptions selects the optional parts of an app.
type appOptions struct {
	// lock takes the per-source lock.
	lock bool
	// resolver overrides the category resolver. Used by tests.
	resolver *category.Resolver
}

// newApp wires the components for cfg. The caller must Close it.
func newApp(cfg *config.Config, logger *slog.Logger, opts appOptions) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if err := cfg.CheckSource(); err != nil {
		return nil, err
	}

	if opts.lock {
		a.lock = lock.ForSource(config.LockDir(), cfg.Source)
		if err := a.lock.Acquire(); err != nil {
			a.lock = nil
			return nil, err
		}
	}

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		a.journal = store
	}

	a.resolver = opts.resolver
	if a.resolver == nil {
		a.resolver, err = newResolver(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	a.relocator = relocate.New(cfg.Destination,
		relocate.WithLinkDuration(cfg.LinkDuration.Std()),
		relocate.WithLogger(logger))

	pf, err := filter.New(cfg.Exclude)
	if err != nil {
		return nil, err
	}

	dcfg := dispatch.Config{
		Source:    cfg.Source,
		Recursive: cfg.Recursive,
		Delay:     cfg.Delay.Std(),
		Workers:   cfg.Workers,
		Filter:    pf,
		Resolver:  a.resolver,
		Relocator: a.relocator,
		Logger:    logger,
	}
	if a.journal != nil {
		dcfg.Recorder = journalRecorder(a.journal)
	}
	a.dispatcher, err = dispatch.New(dcfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// newResolver builds the category resolver from the categories section.
func newResolver(cfg *config.Config, logger *slog.Logger) (*category.Resolver, error) {
	lookup := cfg.Categories.Lookup

	retry := oerrors.DefaultRetryConfig()
	retry.MaxRetries = lookup.Retries

	return category.NewResolver(category.NewCache(cfg.Categories.Known), category.Options{
		BaseURL:         lookup.URL,
		Pattern:         lookup.Pattern,
		Default:         cfg.Categories.Default,
		Timeout:         lookup.Timeout.Std(),
		Retry:           &retry,
		BreakerFailures: lookup.BreakerFailures,
		BreakerReset:    lookup.BreakerReset.Std(),
		Logger:          logger,
	})
}

// Close flushes transient links, then closes the journal and the lock.
func (a *app) Close() {
	if a.relocator != nil {
		if n := a.relocator.PendingLinks(); n > 0 {
			a.logger.Info("removing transient links", slog.Int("links", n))
		}
		if err := a.relocator.Close(); err != nil {
			a.logger.Warn("failed to remove transient links", oerrors.LogAttrs(err)...)
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close journal", oerrors.LogAttrs(err)...)
		}
	}
	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			a.logger.Warn("failed to release lock", oerrors.LogAttrs(err)...)
		}
	}
}

// journalRecorder stores dispatcher results in the journal.
func journalRecorder(store *journal.Store) dispatch.Recorder {
	return dispatch.RecorderFunc(func(ctx context.Context, r dispatch.Result) error {
		_, err := store.Record(ctx, journalEntry(r))
		return err
	})
}

func journalEntry(r dispatch.Result) journal.Entry {
	e := journal.Entry{
		EventID:     r.Event.ID,
		Origin:      string(r.Event.Origin),
		Source:      r.Event.Path,
		Destination: r.Outcome.Destination,
		Category:    r.Resolution.Category,
		Resolution:  string(r.Resolution.Source),
		Status:      string(r.Status),
		Failed:      r.Status == dispatch.StatusRelocateFailed,
		CreatedAt:   r.Started,
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}

package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ickyicky/folder-observer/internal/config"
	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/watcher"
)

// runWatch is the default command: sweep, then watch until interrupted.
func runWatch(cmd *cobra.Command, o *options, args []string) error {
	cfg, err := o.loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, cleanup, err := o.setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(cfg, logger, appOptions{lock: true})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.watch(cmd.Context())
}

// watch runs the startup sweep and then the live pipeline until ctx ends.
func (a *app) watch(ctx context.Context) error {
	cfg := a.cfg
	a.logger.Info("observer starting",
		slog.String("source", cfg.Source),
		slog.String("destination", a.relocator.DestinationRoot()),
		slog.Bool("recursive", cfg.Recursive),
		slog.Duration("delay", cfg.Delay.Std()),
		slog.Duration("link_duration", cfg.LinkDuration.Std()))

	w, err := watcher.NewHybridWatcher(watcherOptions(cfg, a.logger))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	// The watcher starts before the sweep so files arriving meanwhile are
	// not missed; the in-flight set absorbs the overlap.
	g.Go(func() error {
		err := w.Start(ctx, cfg.Source)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case err, ok := <-w.Errors():
				if !ok {
					return nil
				}
				a.logger.Warn("watcher error", oerrors.LogAttrs(err)...)
			}
		}
	})
	// Live events are consumed while the sweep runs; otherwise a slow sweep
	// lets the watcher's batch buffer fill and drop arrivals.
	g.Go(func() error {
		return a.dispatcher.Run(ctx, w.Events())
	})
	if cfg.SortExisting {
		g.Go(func() error {
			results, err := a.dispatcher.Sweep(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("startup sweep finished", slog.Int("files", len(results)))
			return nil
		})
	}

	err = g.Wait()
	_ = w.Stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("observer stopped",
		slog.Int64("remote_lookups", a.resolver.Lookups()),
		slog.Uint64("dropped_batches", w.DroppedBatches()))
	return nil
}

// watcherOptions maps the watch section onto watcher.Options.
func watcherOptions(cfg *config.Config, logger *slog.Logger) watcher.Options {
	opts := watcher.DefaultOptions()
	opts.Recursive = cfg.Recursive
	opts.DebounceWindow = cfg.Watch.Debounce.Std()
	opts.PollInterval = cfg.Watch.PollInterval.Std()
	opts.ForcePolling = cfg.Watch.ForcePolling
	opts.IgnorePatterns = cfg.Watch.Ignore
	opts.Logger = logger
	return opts
}

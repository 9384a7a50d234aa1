package dispatch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ickyicky/folder-observer/internal/category"
	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/filter"
	"github.com/ickyicky/folder-observer/internal/watcher"
)

// Config configures a Dispatcher.
type Config struct {
	// Source is the watched directory, used by Sweep.
	Source string
	// Recursive makes Sweep descend into subdirectories.
	Recursive bool
	// Delay is how long to wait before handling a file.
	Delay time.Duration
	// Workers bounds concurrent handling in Run and Sweep (default: 4).
	Workers int

	Filter    *filter.PathFilter
	Resolver  Resolver
	Relocator Relocator
	// Recorder is optional.
	Recorder Recorder
	Logger   *slog.Logger
}

// Dispatcher runs the per-file pipeline.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}

	stats counters
}

// New validates cfg and creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Resolver == nil || cfg.Relocator == nil {
		return nil, oerrors.InternalError("dispatcher requires a resolver and a relocator", nil)
	}
	if cfg.Delay < 0 {
		return nil, oerrors.ValidationError(fmt.Sprintf("negative delay %s", cfg.Delay), nil)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Filter == nil {
		cfg.Filter = filter.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		cfg:      cfg,
		logger:   cfg.Logger,
		inFlight: make(map[string]struct{}),
	}, nil
}

// Stats returns a snapshot of the event counters.
func (d *Dispatcher) Stats() Stats {
	return d.stats.snapshot()
}

// Handle runs the pipeline for one event. It never returns an error; the
// Result carries the status and any failure.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) Result {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Origin == "" {
		ev.Origin = OriginWatch
	}

	res := Result{Event: ev, Started: time.Now()}
	res.Status = d.handle(ctx, &res)
	res.Duration = time.Since(res.Started)
	d.stats.observe(res.Status)

	if res.Status.Skipped() {
		d.logger.Debug("event skipped",
			slog.String("event_id", ev.ID),
			slog.String("path", ev.Path),
			slog.String("status", string(res.Status)))
		return res
	}

	if d.cfg.Recorder != nil {
		if err := d.cfg.Recorder.Record(context.WithoutCancel(ctx), res); err != nil {
			attrs := append([]any{slog.String("event_id", ev.ID)}, oerrors.LogAttrs(err)...)
			d.logger.Warn("failed to record relocation", attrs...)
		}
	}
	return res
}

func (d *Dispatcher) handle(ctx context.Context, res *Result) Status {
	path := res.Event.Path

	if !isRegular(path) {
		return StatusSkippedNotRegular
	}

	if pattern, excluded := d.cfg.Filter.Match(filepath.Base(path)); excluded {
		res.Pattern = pattern
		return StatusSkippedExcluded
	}

	if !d.acquire(path) {
		return StatusSkippedInFlight
	}
	defer d.release(path)

	d.logger.Debug("event received",
		slog.String("event_id", res.Event.ID),
		slog.String("path", path),
		slog.String("origin", string(res.Event.Origin)))

	if d.cfg.Delay > 0 {
		timer := time.NewTimer(d.cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return StatusSkippedCancelled
		case <-timer.C:
		}
		if !isRegular(path) {
			return StatusSkippedNotRegular
		}
	}

	// From here on the file is handled to completion.
	work := context.WithoutCancel(ctx)

	res.Resolution = d.cfg.Resolver.Resolve(work, category.Extension(path))

	d.logger.Debug("relocation started",
		slog.String("event_id", res.Event.ID),
		slog.String("path", path),
		slog.String("category", res.Resolution.Category))

	outcome, err := d.cfg.Relocator.Relocate(work, path, res.Resolution.Category)
	res.Outcome = outcome
	if err != nil {
		res.Err = err
		attrs := append([]any{
			slog.String("event_id", res.Event.ID),
			slog.String("path", path),
			slog.String("category", res.Resolution.Category),
		}, oerrors.LogAttrs(err)...)

		if oerrors.HasCode(err, oerrors.ErrCodeLinkFailed) {
			d.logger.Warn("transient link failed", attrs...)
			return StatusLinkFailed
		}
		d.logger.Error("relocation failed", attrs...)
		return StatusRelocateFailed
	}

	return StatusRelocated
}

func (d *Dispatcher) acquire(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[path]; busy {
		return false
	}
	d.inFlight[path] = struct{}{}
	return true
}

func (d *Dispatcher) release(path string) {
	d.mu.Lock()
	delete(d.inFlight, path)
	d.mu.Unlock()
}

// isRegular reports whether path is a regular file. Symlinks are not
// followed, so links left behind by a relocation are never picked up.
func isRegular(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

// Sweep handles every regular file already present under the source.
// Results are returned sorted by path.
func (d *Dispatcher) Sweep(ctx context.Context) ([]Result, error) {
	paths, err := d.listSource()
	if err != nil {
		return nil, err
	}

	d.logger.Info("sweeping existing files",
		slog.String("source", d.cfg.Source),
		slog.Int("files", len(paths)))

	results := d.handleAll(ctx, paths, OriginSweep)
	sort.Slice(results, func(i, j int) bool { return results[i].Event.Path < results[j].Event.Path })
	return results, nil
}

// Redrive handles the given paths as retries.
func (d *Dispatcher) Redrive(ctx context.Context, paths []string) []Result {
	return d.handleAll(ctx, paths, OriginRetry)
}

func (d *Dispatcher) handleAll(ctx context.Context, paths []string, origin Origin) []Result {
	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(paths))
	)

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r := d.Handle(ctx, Event{Path: p, Origin: origin})
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// listSource returns the regular files under the source directory.
func (d *Dispatcher) listSource() ([]string, error) {
	root := d.cfg.Source
	if root == "" {
		return nil, oerrors.New(oerrors.ErrCodeSourceMissing, "no source directory configured", nil)
	}

	if !d.cfg.Recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, oerrors.New(oerrors.ErrCodeSourceMissing, "read source directory", err).
				WithDetail("path", root)
		}
		paths := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type().IsRegular() {
				paths = append(paths, filepath.Join(root, e.Name()))
			}
		}
		return paths, nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			d.logger.Warn("skipping unreadable path during sweep",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if e != nil && e.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if e.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, oerrors.New(oerrors.ErrCodeSourceMissing, "walk source directory", err).
			WithDetail("path", root)
	}
	return paths, nil
}

// Run handles watcher batches until ctx is cancelled or batches is closed.
// On return every started event has finished.
func (d *Dispatcher) Run(ctx context.Context, batches <-chan []watcher.FileEvent) error {
	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	defer func() {
		_ = g.Wait()
		d.logger.Info("dispatcher stopped", slog.Any("stats", d.Stats()))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			for _, fe := range batch {
				if fe.IsDir || !fe.Operation.Arrival() {
					continue
				}
				if ctx.Err() != nil {
					return nil
				}
				ev := Event{Path: fe.Path, Origin: OriginWatch}
				g.Go(func() error {
					d.Handle(ctx, ev)
					return nil
				})
			}
		}
	}
}

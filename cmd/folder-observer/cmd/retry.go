package cmd

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ickyicky/folder-observer/internal/config"
	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/journal"
	"github.com/ickyicky/folder-observer/internal/output"
)

func newRetryCmd(o *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "retry [id...]",
		Short: "Re-drive failed relocations from the journal",
		Long: `Run failed relocations through the pipeline again.

Without arguments every failed entry under the current source that has
not been retried is re-driven. Entries whose file is gone are marked as
retried and skipped. Each new attempt is recorded as a new entry.`,
		Example: `  folder-observer retry
  folder-observer retry 42 43
  folder-observer retry --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runRetry(cmd, o, ids, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list what would be retried")

	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, oerrors.ValidationError("invalid journal id "+strconv.Quote(arg), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runRetry(cmd *cobra.Command, o *options, ids []int64, dryRun bool) error {
	cfg, err := o.loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return oerrors.ConfigError("the journal is disabled", nil).
			WithSuggestion("Set journal.enabled: true to record and retry relocations")
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

	ctx := cmd.Context()
	candidates, err := retryCandidates(cmd, a.journal, ids)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	var (
		paths []string
		done  []int64
	)
	for _, e := range candidates {
		switch {
		case !config.IsWithin(e.Source, cfg.Source):
			out.Warningf("#%d %s is outside %s, skipped", e.ID, e.Source, cfg.Source)
			continue
		case !fileExists(e.Source):
			out.Statusf("·", "#%d %s is gone", e.ID, e.Source)
		default:
			paths = append(paths, e.Source)
			if dryRun {
				out.Statusf("→", "#%d %s", e.ID, e.Source)
			}
		}
		done = append(done, e.ID)
	}

	if dryRun {
		return nil
	}
	if len(done) == 0 {
		out.Success("nothing to retry")
		return nil
	}

	results := a.dispatcher.Redrive(ctx, paths)
	if err := a.journal.MarkRetried(ctx, done...); err != nil {
		return err
	}

	printResults(out, results, false)
	out.Summary(a.dispatcher.Stats())
	return nil
}

// retryCandidates returns the requested entries, or every open failure.
func retryCandidates(cmd *cobra.Command, store *journal.Store, ids []int64) ([]journal.Entry, error) {
	ctx := cmd.Context()
	if len(ids) == 0 {
		return store.Failed(ctx, 0)
	}

	entries := make([]journal.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !e.Failed {
			return nil, oerrors.ValidationError("journal entry "+strconv.FormatInt(id, 10)+" did not fail", nil).
				WithDetail("status", e.Status)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

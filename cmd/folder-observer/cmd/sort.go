package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ickyicky/folder-observer/internal/dispatch"
	"github.com/ickyicky/folder-observer/internal/output"
)

func newSortCmd(o *options) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "sort [source]",
		Short: "Sort the files already in the source once and exit",
		Long: `Run every regular file currently in the source through the same
pipeline the watcher uses, print what happened to each and exit.

Exclusions, the delay and transient links apply as when watching. Links
are removed before the command exits.`,
		Example: `  # Sort ~/Downloads once
  folder-observer sort

  # Sort a tree into another directory
  folder-observer sort ~/Inbox -r -d ~/Sorted`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, o, args, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")

	return cmd
}

func runSort(cmd *cobra.Command, o *options, args []string, quiet bool) error {
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

	results, err := a.dispatcher.Sweep(cmd.Context())
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	printResults(out, results, quiet)
	out.Summary(a.dispatcher.Stats())
	return nil
}

// printResults prints one line per result, skipping the silent statuses.
func printResults(out *output.Writer, results []dispatch.Result, quiet bool) {
	if quiet {
		return
	}
	for _, r := range results {
		if r.Status == dispatch.StatusSkippedNotRegular || r.Status == dispatch.StatusSkippedInFlight {
			continue
		}
		out.Result(r)
	}
}

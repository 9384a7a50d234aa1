package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/journal"
	"github.com/ickyicky/folder-observer/internal/output"
)

func newHistoryCmd(o *options) *cobra.Command {
	var (
		limit      int
		failedOnly bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded relocations",
		Long: `Show the relocations recorded in the journal, newest first.

Failed relocations that have not been retried can be re-driven with
'folder-observer retry'.`,
		Example: `  folder-observer history
  folder-observer history --failed
  folder-observer history -n 100 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if _, err := os.Stat(cfg.Journal.Path); os.IsNotExist(err) {
				out.History(nil)
				return nil
			}

			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			var entries []journal.Entry
			if failedOnly {
				entries, err = store.Failed(ctx, limit)
			} else {
				entries, err = store.List(ctx, limit)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if entries == nil {
					entries = []journal.Entry{}
				}
				return enc.Encode(entries)
			}

			out.History(entries)
			if !failedOnly {
				counts, err := store.Counts(ctx)
				if err != nil {
					return err
				}
				out.Counts(counts)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Entries to show (0 for all)")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only failed relocations not yet retried")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.PreRunE = func(_ *cobra.Command, _ []string) error {
		if limit < 0 {
			return oerrors.ValidationError("--limit must not be negative", nil)
		}
		return nil
	}

	return cmd
}

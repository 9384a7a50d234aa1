package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ickyicky/folder-observer/internal/config"
	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/preflight"
)

func newDoctorCmd(o *options) *cobra.Command {
	var (
		offline    bool
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor [source]",
		Short: "Check that the observer can run",
		Long: `Run pre-flight checks against the effective configuration: the source
exists, the destination is writable and on the same filesystem, no other
observer holds the source, and the journal and lookup service work.

Exits non-zero when a required check fails.`,
		Example: `  folder-observer doctor
  folder-observer doctor ~/Downloads -d /data/sorted -r
  folder-observer doctor --offline --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig(cmd, args)
			if err != nil {
				return err
			}

			checker := preflight.New(
				preflight.WithOffline(offline),
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithLockDir(config.LockDir()),
			)
			results := checker.RunAll(cmd.Context(), cfg)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(struct {
					Status string                  `json:"status"`
					Checks []preflight.CheckResult `json:"checks"`
				}{checker.SummaryStatus(results), results}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return oerrors.ValidationError("pre-flight checks failed", nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the lookup service check")
	cmd.Flags().BoolVar(&verbose, "details", false, "Show details for each check")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

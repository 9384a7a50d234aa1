package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/logging"
	"github.com/ickyicky/folder-observer/internal/output"
)

func newLogsCmd(o *options) *cobra.Command {
	var (
		lines   int
		follow  bool
		level   string
		pattern string
		all     bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the observer's log file",
		Long: `Print the JSON log file written with --logfile (or log.file) in a
readable form, optionally following new records as they are written.`,
		Example: `  folder-observer logs -n 100
  folder-observer logs -f --level warn
  folder-observer logs --grep 'PDF' --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if cfg.Log.File == "" {
				return oerrors.ConfigError("no log file configured", nil).
					WithSuggestion("Pass --logfile or set log.file in the config")
			}
			if level != "" && !logging.ValidLevel(level) {
				return oerrors.ValidationError(fmt.Sprintf("unknown level %q", level), nil)
			}

			vcfg := logging.ViewerConfig{
				Level:   level,
				NoColor: noColor || !output.IsTTY(cmd.OutOrStdout()) || output.DetectNoColor(),
			}
			if pattern != "" {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return oerrors.New(oerrors.ErrCodeInvalidPattern, "invalid --grep pattern", err)
				}
				vcfg.Pattern = re
			}
			viewer := logging.NewViewer(vcfg, cmd.OutOrStdout())

			if all {
				for _, path := range logging.RotatedFiles(cfg.Log.File) {
					entries, err := viewer.Tail(path, maxTailLines)
					if err != nil {
						return err
					}
					viewer.Print(entries)
				}
			}

			n := lines
			if all {
				n = maxTailLines
			}
			entries, err := viewer.Tail(cfg.Log.File, n)
			if err != nil {
				return err
			}
			viewer.Print(entries)

			if !follow {
				return nil
			}
			ch := make(chan logging.LogEntry, 64)
			errCh := make(chan error, 1)
			go func() {
				errCh <- viewer.Follow(cmd.Context(), cfg.Log.File, ch)
				close(ch)
			}()
			for entry := range ch {
				viewer.Print([]logging.LogEntry{entry})
			}
			return <-errCh
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Lines to show from the end of the file")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&pattern, "grep", "", "Only records matching this regular expression")
	cmd.Flags().BoolVar(&all, "all", false, "Include rotated files, oldest first")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")

	return cmd
}

// maxTailLines bounds --all reads per file.
const maxTailLines = 1 << 20

// Package cmd provides the CLI commands for folder-observer.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ickyicky/folder-observer/internal/config"
	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/logging"
	"github.com/ickyicky/folder-observer/pkg/version"
)

// options holds the flags shared by the commands. Only flags the user set
// override the loaded configuration.
type options struct {
	configPath   string
	destination  string
	recursive    bool
	sortOld      bool
	delay        config.Duration
	linkDuration config.Duration
	workers      int
	logFile      string
	debug        bool
	noJournal    bool
}

// NewRootCmd creates the root command for the folder-observer CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{})
}

func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder-observer [source]",
		Short: "Sort files into category folders as they arrive",
		Long: `folder-observer watches a directory and moves every new file into a
subdirectory named after its category, e.g. report.pdf into PDF/.

Categories come from a built-in table, then from a remote lookup by
extension. Unknown extensions go to the default category.

Run without arguments to watch ~/Downloads.`,
		Example: `  # Watch ~/Downloads, sorting what is already there first
  folder-observer

  # Watch a directory recursively, sorting into another one
  folder-observer ~/Inbox -r -d ~/Sorted

  # Wait 5 seconds before moving and leave a link behind for a minute
  folder-observer --delay 5 --ln-duration 1m`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, o, args)
		},
	}

	cmd.SetVersionTemplate("folder-observer version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Config file (default: user config only)")
	pf.StringVarP(&o.destination, "destination", "d", "", "Destination root (default: the source)")
	pf.BoolVarP(&o.recursive, "recursive", "r", false, "Include subdirectories")
	pf.Var(&o.delay, "delay", "Wait before moving a file (seconds or duration)")
	pf.Var(&o.linkDuration, "ln-duration", "Leave a link at the old path for this long (seconds or duration)")
	pf.IntVar(&o.workers, "workers", 0, "Files handled concurrently")
	pf.StringVarP(&o.logFile, "logfile", "l", "", "Write JSON logs to this file")
	pf.BoolVarP(&o.debug, "debug", "v", false, "Enable debug logging")
	pf.BoolVar(&o.noJournal, "no-journal", false, "Do not record relocations")

	cmd.Flags().BoolVar(&o.sortOld, "sort-old", true, "Sort files already in the source at startup")

	cmd.AddCommand(newSortCmd(o))
	cmd.AddCommand(newResolveCmd(o))
	cmd.AddCommand(newHistoryCmd(o))
	cmd.AddCommand(newRetryCmd(o))
	cmd.AddCommand(newLogsCmd(o))
	cmd.AddCommand(newConfigCmd(o))
	cmd.AddCommand(newDoctorCmd(o))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command, printing errors in CLI form.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, oerrors.FormatForCLI(err))
	}
	return err
}

// loadConfig builds the effective configuration: files and environment,
// then the flags the user set, then an optional source argument.
func (o *options) loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Source = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("destination") {
		cfg.Destination = o.destination
	}
	if flags.Changed("recursive") {
		cfg.Recursive = o.recursive
	}
	if flags.Changed("sort-old") {
		cfg.SortExisting = o.sortOld
	}
	if flags.Changed("delay") {
		cfg.Delay = o.delay
	}
	if flags.Changed("ln-duration") {
		cfg.LinkDuration = o.linkDuration
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("logfile") {
		cfg.Log.File = o.logFile
	}
	if o.debug {
		cfg.Log.Level = "debug"
	}
	if o.noJournal {
		cfg.Journal.Enabled = false
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging configures the default logger from cfg. With a log file and
// --debug, records are teed to stderr as well.
func (o *options) setupLogging(cfg *config.Config) (*slog.Logger, func(), error) {
	logger, cleanup, err := logging.Setup(logging.Config{
		Level:         cfg.Log.Level,
		FilePath:      cfg.Log.File,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxFiles:      cfg.Log.MaxFiles,
		WriteToStderr: o.debug,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

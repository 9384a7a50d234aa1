package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ickyicky/folder-observer/internal/category"
	"github.com/ickyicky/folder-observer/internal/output"
)

func newResolveCmd(o *options) *cobra.Command {
	var (
		offline bool
		known   bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <extension|file>...",
		Short: "Print the category for extensions or file names",
		Long: `Resolve categories the way the observer does, without moving anything.

Arguments without a dot, or starting with one, are extensions ("pdf",
".tar.gz"). Anything else is a file name whose extension is everything
after the first dot ("archive.tar.gz" is "tar.gz").`,
		Example: `  folder-observer resolve pdf dwg
  folder-observer resolve report.PDF photo.jpeg
  folder-observer resolve --offline xyz
  folder-observer resolve --known`,
		Args: func(cmd *cobra.Command, args []string) error {
			if known {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if offline {
				cfg.Categories.Lookup.URL = ""
			}
			logger, cleanup, err := o.setupLogging(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			resolver, err := newResolver(cfg, logger)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if known {
				cache := resolver.Cache()
				for _, ext := range cache.Extensions() {
					out.Resolution(ext, resolver.Resolve(cmd.Context(), ext))
				}
				return nil
			}
			for _, arg := range args {
				out.Resolution(arg, resolver.Resolve(cmd.Context(), extensionOf(arg)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Do not query the lookup service")
	cmd.Flags().BoolVar(&known, "known", false, "List the configured extension table")

	return cmd
}

// extensionOf interprets a resolve argument as an extension or a file name.
func extensionOf(arg string) string {
	if strings.HasPrefix(arg, ".") || !strings.Contains(arg, ".") {
		return category.NormalizeExtension(arg)
	}
	return category.Extension(arg)
}

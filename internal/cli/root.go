package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/mixorder/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The --verbose flag switches the logger to debug level before any
// subcommand runs, and the logger is attached to the command context so
// helpers can reach it through loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "mixorder orders DJ sets for harmonic and tempo flow",
		Long:         `mixorder reads a playlist of tracks with tempo and Camelot key, and finds a play order with +-1 semitone key shifts that minimizes clashing transitions.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.toml or .yaml; default ~/.config/mixorder/config.toml)")

	root.AddCommand(c.optimizeCommand())
	root.AddCommand(c.exactCommand())
	root.AddCommand(c.keysCommand())
	root.AddCommand(c.setsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.serveCommand())

	return root
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	logFile      string
	verbose      bool
	quiet        bool
)

// Build information, set by Execute.
var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// Execute runs the command tree. SIGINT and SIGTERM cancel the command's
// context.
func Execute(version, commit, date string) error {
	appVersion, appCommit, appDate = version, commit, date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ezupdate",
		Short: "Self-updater for programs released on GitHub",
		Long: `ezupdate keeps a program up to date from its GitHub releases.

It checks the latest release against the running version, downloads the
matching asset with stall detection and retries, and installs it in place
with a rollback if anything goes wrong.`,
		Version:      appVersion,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml, toml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to ezupdate config file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log destination: console or a file path (overrides log_file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml", "toml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

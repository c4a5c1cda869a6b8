package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/ezupdate/internal/output"
	"github.com/adamancini/ezupdate/internal/update"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show resolved configuration and updater state",
		Long: `Status prints the configuration in effect and the state of a fresh update
session, without contacting GitHub or sweeping leftovers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

func runStatus(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	w, err := outputWriter(out)
	if err != nil {
		return err
	}

	opts := sessionOptions(cfg)
	opts.SkipSweep = true
	sess, err := update.NewSession(opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	return w.Write(output.NewStatusReport(cfg, sess.Snapshot()))
}

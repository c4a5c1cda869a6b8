package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/ezupdate/internal/output"
	"github.com/adamancini/ezupdate/internal/update"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether a newer release is available",
		Long: `Check fetches the latest GitHub release and compares its tag with the
running version. Nothing is downloaded.

Examples:
  ezupdate check             # Show current and latest version
  ezupdate check -o json     # Machine-readable result`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runCheck(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	w, err := outputWriter(out)
	if err != nil {
		return err
	}

	sess, err := update.NewSession(sessionOptions(cfg))
	if err != nil {
		return err
	}
	defer sess.Close()

	_, checkErr := sess.CheckForUpdate(ctx)
	if err := w.Write(output.NewCheckResult(sess.Snapshot(), sess.Release())); err != nil {
		return err
	}
	if checkErr != nil {
		return fmt.Errorf("update check failed: %w", checkErr)
	}
	return nil
}

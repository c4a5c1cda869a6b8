package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/ezupdate/internal/logging"
	"github.com/adamancini/ezupdate/internal/output"
	"github.com/adamancini/ezupdate/internal/update"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove leftovers of earlier updates",
		Long: `Sweep removes the staging directories of every download attempt and every
file carrying the backup suffix under the application directory.

The same cleanup runs automatically at the start of check and update.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.OutOrStdout())
		},
	}
}

func runSweep(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	w, err := outputWriter(out)
	if err != nil {
		return err
	}

	appDir := cfg.AppDir
	if appDir == "" {
		p, err := update.DetectProgram()
		if err != nil {
			return err
		}
		appDir = p.Dir
	}

	result, sweepErr := update.Sweep(update.SweepOptions{
		TempRoot:     cfg.TempRoot,
		AppDir:       appDir,
		BackupSuffix: cfg.BackupSuffix,
		MaxRetries:   cfg.MaxRetries,
		Logger:       logging.Component("sweep"),
	})
	if err := w.Write(output.NewSweepReport(result)); err != nil {
		return err
	}
	return sweepErr
}

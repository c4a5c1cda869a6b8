package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamancini/ezupdate/internal/interactive"
	"github.com/adamancini/ezupdate/internal/output"
	"github.com/adamancini/ezupdate/internal/types"
	"github.com/adamancini/ezupdate/internal/update"
)

// errNeedsConfirmation is returned when stdin is not a terminal and --yes
// was not given.
var errNeedsConfirmation = errors.New("refusing to install without confirmation (not a terminal); pass --yes")

type updateOptions struct {
	assumeYes   bool
	force       bool
	interactive bool
	in          io.Reader
	out         io.Writer
}

func newUpdateCmd() *cobra.Command {
	var assumeYes, force bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download and install the latest release",
		Long: `Update checks for a newer release, asks for confirmation and installs it.

A download that makes no progress for stall_window is restarted from
scratch, up to max_retries times. Files replaced during the install are
kept next to the originals with backup_suffix until the next run, and
restored if the install fails.

Examples:
  ezupdate update            # Ask before installing
  ezupdate update --yes      # Install without asking
  ezupdate update --force    # Reinstall even when already current`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), updateOptions{
				assumeYes:   assumeYes,
				force:       force,
				interactive: interactive.IsTerminal(),
				in:          os.Stdin,
				out:         cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Install without asking for confirmation")
	cmd.Flags().BoolVar(&force, "force", false, "Install the latest release even if it is not newer")

	return cmd
}

func runUpdate(ctx context.Context, opts updateOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	w, err := outputWriter(opts.out)
	if err != nil {
		return err
	}

	queue := update.NewQueueDispatcher()
	defer queue.Close()

	sessOpts := sessionOptions(cfg)
	sessOpts.Dispatcher = queue
	sess, err := update.NewSession(sessOpts)
	if err != nil {
		return err
	}
	defer sess.Close()

	available, err := sess.CheckForUpdate(ctx)
	if err != nil {
		_ = w.Write(output.NewCheckResult(sess.Snapshot(), sess.Release()))
		return fmt.Errorf("update check failed: %w", err)
	}

	st := sess.Snapshot()
	if !available && !opts.force {
		if !quiet {
			_, _ = fmt.Fprintf(opts.out, "%s %s is up to date\n", st.ProgramFileName, st.ProgramVersion)
		}
		return nil
	}

	if !opts.assumeYes {
		if !opts.interactive {
			return errNeedsConfirmation
		}
		if !interactive.NewPrompterWithIO(opts.in, opts.out).ConfirmUpdate(st) {
			_, _ = fmt.Fprintln(opts.out, "Update skipped.")
			return nil
		}
	}

	textOut := w.Format() == output.FormatText && !quiet
	if textOut {
		sess.SubscribeAll(newProgressPrinter(opts.out).print)
	}

	if err := sess.BeginUpdate(ctx); err != nil {
		queue.Close()
		return fmt.Errorf("update failed: %w", err)
	}

	state, err := sess.Wait(ctx)
	// Deliver every queued event before printing the summary.
	queue.Close()
	if err != nil {
		return err
	}

	final := sess.Snapshot()
	if !textOut {
		if err := w.Write(final); err != nil {
			return err
		}
	}

	if state != types.StateInstalled {
		if cause := sess.Err(); cause != nil {
			return fmt.Errorf("update failed: %s: %w", final.Message, cause)
		}
		return fmt.Errorf("update failed: %s", final.Message)
	}

	if textOut {
		_, _ = fmt.Fprintf(opts.out, "Updated %s to %s. Restart it to use the new version.\n",
			final.ProgramFileName, final.ReleaseVersion)
	}
	return nil
}

// progressPrinter writes event lines, printing download and install
// progress only when it crosses into a new tenth.
type progressPrinter struct {
	out          io.Writer
	lastDownload int
	lastInstall  int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, lastDownload: -1, lastInstall: -1}
}

func (p *progressPrinter) print(ev update.Event) {
	switch ev.Kind {
	case update.EventDownloadProgress:
		if ev.BytesTotal <= 0 || ev.Percent/10 == p.lastDownload {
			return
		}
		p.lastDownload = ev.Percent / 10
	case update.EventInstallProgress:
		if ev.Percent/10 == p.lastInstall {
			return
		}
		p.lastInstall = ev.Percent / 10
	case update.EventRetry:
		p.lastDownload = -1
	case update.EventStateChanged:
		if ev.State == types.StateRetrying {
			// The retry event carries the same information.
			return
		}
	}

	if line := output.EventLine(ev); line != "" {
		_, _ = fmt.Fprintln(p.out, line)
	}
}

package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// versionInfo describes this build.
type versionInfo struct {
	Version   string `json:"version" yaml:"version" toml:"version"`
	Commit    string `json:"commit" yaml:"commit" toml:"commit"`
	Date      string `json:"date" yaml:"date" toml:"date"`
	GoVersion string `json:"go_version" yaml:"go_version" toml:"go_version"`
	Platform  string `json:"platform" yaml:"platform" toml:"platform"`
}

func (v versionInfo) String() string {
	return fmt.Sprintf("ezupdate version %s (commit %s, built %s, %s %s)\n",
		v.Version, v.Commit, v.Date, v.GoVersion, v.Platform)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the ezupdate version and build information.

Use 'ezupdate check' to look for a newer release.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.OutOrStdout())
		},
	}
}

func runVersion(out io.Writer) error {
	w, err := outputWriter(out)
	if err != nil {
		return err
	}
	return w.Write(versionInfo{
		Version:   appVersion,
		Commit:    appCommit,
		Date:      appDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	})
}

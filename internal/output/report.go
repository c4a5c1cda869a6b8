package output

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/adamancini/ezupdate/internal/config"
	"github.com/adamancini/ezupdate/internal/update"
)

// CheckResult is the outcome of an update check.
type CheckResult struct {
	Program         string        `json:"program" yaml:"program" toml:"program"`
	CurrentVersion  string        `json:"current_version" yaml:"current_version" toml:"current_version"`
	LatestVersion   string        `json:"latest_version,omitempty" yaml:"latest_version,omitempty" toml:"latest_version,omitempty"`
	ReleaseName     string        `json:"release_name,omitempty" yaml:"release_name,omitempty" toml:"release_name,omitempty"`
	ReleaseNotes    string        `json:"release_notes,omitempty" yaml:"release_notes,omitempty" toml:"release_notes,omitempty"`
	UpdateAvailable bool          `json:"update_available" yaml:"update_available" toml:"update_available"`
	State           string        `json:"state" yaml:"state" toml:"state"`
	Message         string        `json:"message" yaml:"message" toml:"message"`
	Asset           *update.Asset `json:"asset,omitempty" yaml:"asset,omitempty" toml:"asset,omitempty"`
}

// NewCheckResult builds a CheckResult from a session snapshot. release may
// be nil when the lookup failed.
func NewCheckResult(st update.Status, release *update.ReleaseMetadata) CheckResult {
	r := CheckResult{
		Program:         st.ProgramFileName,
		CurrentVersion:  st.ProgramVersion,
		LatestVersion:   st.ReleaseVersion,
		ReleaseName:     st.ReleaseName,
		ReleaseNotes:    st.ReleaseBody,
		UpdateAvailable: st.UpdateAvailable,
		State:           st.State.String(),
		Message:         st.Message,
	}
	if release != nil {
		if a, ok := release.FindAsset(st.AssetName); ok {
			r.Asset = &a
		}
	}
	return r
}

func (r CheckResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.Program, r.CurrentVersion)
	if r.LatestVersion == "" {
		fmt.Fprintf(&b, "  %s\n", r.Message)
		return b.String()
	}

	fmt.Fprintf(&b, "  Latest:  %s", r.LatestVersion)
	if r.ReleaseName != "" && r.ReleaseName != r.LatestVersion {
		fmt.Fprintf(&b, " (%s)", r.ReleaseName)
	}
	b.WriteString("\n")
	if r.Asset != nil {
		fmt.Fprintf(&b, "  Asset:   %s", r.Asset.Name)
		if r.Asset.Size > 0 {
			fmt.Fprintf(&b, " (%s)", humanize.Bytes(uint64(r.Asset.Size)))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  Status:  %s\n", r.Message)

	if r.UpdateAvailable && strings.TrimSpace(r.ReleaseNotes) != "" {
		b.WriteString("\nRelease notes:\n")
		for _, line := range strings.Split(strings.TrimSpace(r.ReleaseNotes), "\n") {
			fmt.Fprintf(&b, "  %s\n", strings.TrimRight(line, "\r"))
		}
	}
	return b.String()
}

// StatusReport pairs the resolved configuration with a session snapshot.
type StatusReport struct {
	Config  *config.Config `json:"config" yaml:"config" toml:"config"`
	Session update.Status  `json:"session" yaml:"session" toml:"session"`
}

// NewStatusReport builds a report. The token in cfg is redacted.
func NewStatusReport(cfg *config.Config, st update.Status) StatusReport {
	return StatusReport{Config: cfg.Redacted(), Session: st}
}

func (r StatusReport) String() string {
	var b strings.Builder
	c, s := r.Config, r.Session

	b.WriteString("Configuration:\n")
	fmt.Fprintf(&b, "  Repository:    %s/%s\n", c.Owner, c.Repo)
	fmt.Fprintf(&b, "  Asset:         %s\n", s.AssetName)
	fmt.Fprintf(&b, "  Retries:       %d (stall window %s)\n", c.MaxRetries, c.StallWindow.Std())
	fmt.Fprintf(&b, "  Backup suffix: %s\n", c.BackupSuffix)
	fmt.Fprintf(&b, "  API:           %s\n", c.APIURL)

	b.WriteString("\nSession:\n")
	fmt.Fprintf(&b, "  Program:  %s %s (%s)\n", s.ProgramFileName, s.ProgramVersion, s.Platform)
	fmt.Fprintf(&b, "  State:    %s (%s)\n", s.State, s.ShortState)
	fmt.Fprintf(&b, "  Message:  %s\n", s.Message)
	if s.ReleaseVersion != "" {
		fmt.Fprintf(&b, "  Latest:   %s\n", s.ReleaseVersion)
	}
	return b.String()
}

// SweepReport lists what a sweep removed.
type SweepReport struct {
	RemovedDirs    []string `json:"removed_dirs" yaml:"removed_dirs" toml:"removed_dirs"`
	RemovedBackups []string `json:"removed_backups" yaml:"removed_backups" toml:"removed_backups"`
}

// NewSweepReport copies r, which may be nil when no sweep ran.
func NewSweepReport(r *update.SweepResult) SweepReport {
	rep := SweepReport{RemovedDirs: []string{}, RemovedBackups: []string{}}
	if r != nil {
		rep.RemovedDirs = append(rep.RemovedDirs, r.RemovedDirs...)
		rep.RemovedBackups = append(rep.RemovedBackups, r.RemovedBackups...)
	}
	return rep
}

func (r SweepReport) String() string {
	if len(r.RemovedDirs) == 0 && len(r.RemovedBackups) == 0 {
		return "Nothing to clean up.\n"
	}
	var b strings.Builder
	if len(r.RemovedDirs) > 0 {
		fmt.Fprintf(&b, "Removed %d staging %s:\n", len(r.RemovedDirs), plural(len(r.RemovedDirs), "directory", "directories"))
		for _, d := range r.RemovedDirs {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	if len(r.RemovedBackups) > 0 {
		fmt.Fprintf(&b, "Removed %d %s:\n", len(r.RemovedBackups), plural(len(r.RemovedBackups), "backup", "backups"))
		for _, f := range r.RemovedBackups {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	return b.String()
}

// EventLine renders a session event as one line of progress output, or ""
// for events that have no text form.
func EventLine(ev update.Event) string {
	switch ev.Kind {
	case update.EventStateChanged:
		return ev.Message
	case update.EventDownloadProgress:
		if ev.BytesTotal > 0 {
			return fmt.Sprintf("Downloading... %3d%% (%s / %s)", ev.Percent,
				humanize.Bytes(uint64(ev.BytesDone)), humanize.Bytes(uint64(ev.BytesTotal)))
		}
		return fmt.Sprintf("Downloading... %s", humanize.Bytes(uint64(ev.BytesDone)))
	case update.EventRetry:
		return fmt.Sprintf("Download stalled, retry %d/%d", ev.Attempt, ev.MaxRetries)
	case update.EventCanceled:
		if ev.Err != nil {
			return fmt.Sprintf("Update canceled: %v", ev.Err)
		}
		return "Update canceled"
	case update.EventInstallProgress:
		return fmt.Sprintf("Installing... %3d%%", ev.Percent)
	case update.EventInstallFailed:
		if ev.Err != nil {
			return fmt.Sprintf("Install failed: %v", ev.Err)
		}
		return "Install failed"
	case update.EventUpdateFinished:
		return "Update finished"
	}
	return ""
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

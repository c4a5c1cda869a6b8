package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/ezupdate/internal/types"
)

// Session defaults.
const (
	DefaultMaxRetries  = 4
	DefaultStallWindow = 5 * time.Second
	DefaultSettleDelay = time.Second
	DefaultFinishDelay = 250 * time.Millisecond
)

// archivePrefix is prepended to a downloaded archive before extraction so
// that it cannot collide with a file of the same name inside it.
const archivePrefix = "ezu-"

// activeSession guards the one-session-per-process rule.
var activeSession atomic.Bool

// Options configures a Session. Only Owner, Repo and CurrentVersion are required.
type Options struct {
	Owner string
	Repo  string
	// AssetName is the release asset to install. Defaults to the canonical
	// program name (OriginalName plus the running file's extension).
	AssetName string
	// OriginalName is the name the program ships under. When the running file
	// was renamed, the staged file with this name is installed over it.
	OriginalName string
	// KeepOriginalName renames the running file to OriginalName when the
	// session opens, so the install replaces it under that name.
	KeepOriginalName bool
	// CurrentVersion is the version tag of the running program.
	CurrentVersion string

	// Program defaults to the running executable.
	Program Program
	// AppDir is the directory updated in place. Defaults to Program.Dir.
	AppDir   string
	TempRoot string

	MaxRetries   int
	StallWindow  time.Duration
	SettleDelay  time.Duration
	FinishDelay  time.Duration
	BackupSuffix string
	SkipSweep    bool

	Source     ReleaseSource
	Downloader Downloader
	Extractor  Extractor
	Dispatcher Dispatcher
	Logger     *log.Entry
}

func (o *Options) setDefaults() error {
	if o.Owner == "" || o.Repo == "" {
		return errors.New("owner and repo are required")
	}
	if o.KeepOriginalName && o.OriginalName == "" {
		return errors.New("keeping the original name requires OriginalName")
	}
	switch {
	case o.Program.Path == "":
		p, err := DetectProgram()
		if err != nil {
			return err
		}
		o.Program = p
	case o.Program.Dir == "" || o.Program.FileName == "":
		o.Program = ProgramAt(o.Program.Path)
	}
	if o.AppDir == "" {
		o.AppDir = o.Program.Dir
	}
	if o.AssetName == "" {
		o.AssetName = o.Program.CanonicalName(o.OriginalName)
	}
	if o.TempRoot == "" {
		o.TempRoot = os.TempDir()
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.StallWindow <= 0 {
		o.StallWindow = DefaultStallWindow
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.FinishDelay <= 0 {
		o.FinishDelay = DefaultFinishDelay
	}
	if o.BackupSuffix == "" {
		o.BackupSuffix = DefaultBackupSuffix
	}
	if o.Source == nil {
		o.Source = NewGitHubSource("")
	}
	if o.Downloader == nil {
		o.Downloader = NewHTTPDownloader()
	}
	if o.Extractor == nil {
		o.Extractor = ExtractZip
	}
	if o.Logger == nil {
		o.Logger = log.WithField("component", "updater")
	}
	return nil
}

// Status is a point-in-time copy of the session's observable fields.
type Status struct {
	State           State      `json:"state" yaml:"state" toml:"state"`
	ShortState      ShortState `json:"short_state" yaml:"short_state" toml:"short_state"`
	Message         string     `json:"message" yaml:"message" toml:"message"`
	Progress        int        `json:"progress" yaml:"progress" toml:"progress"`
	RetryCount      int        `json:"retry_count" yaml:"retry_count" toml:"retry_count"`
	MaxRetries      int        `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	UpdateAvailable bool       `json:"update_available" yaml:"update_available" toml:"update_available"`
	ProgramVersion  string     `json:"program_version" yaml:"program_version" toml:"program_version"`
	ProgramFileName string     `json:"program_file_name" yaml:"program_file_name" toml:"program_file_name"`
	ReleaseVersion  string     `json:"release_version,omitempty" yaml:"release_version,omitempty" toml:"release_version,omitempty"`
	ReleaseName     string     `json:"release_name,omitempty" yaml:"release_name,omitempty" toml:"release_name,omitempty"`
	ReleaseBody     string     `json:"release_body,omitempty" yaml:"release_body,omitempty" toml:"release_body,omitempty"`
	AssetName       string     `json:"asset_name" yaml:"asset_name" toml:"asset_name"`
	Asset           *Asset     `json:"asset,omitempty" yaml:"asset,omitempty" toml:"asset,omitempty"`
	Platform        Platform   `json:"platform" yaml:"platform" toml:"platform"`
}

// Session drives one update from release lookup to installed files.
// Only one Session may be open per process.
type Session struct {
	opts       Options
	log        *log.Entry
	bus        *eventBus
	supervisor *DownloadSupervisor
	local      *Version

	ctx    context.Context
	cancel context.CancelFunc

	opMu sync.Mutex // serializes CheckForUpdate and BeginUpdate

	mu          sync.Mutex
	state       State
	message     string
	progress    int
	release     *ReleaseMetadata
	available   bool
	fetchErr    error
	err         error
	asset       *Asset
	cannotWrite bool
	closed      bool
	sweep       *SweepResult

	installs sync.WaitGroup // held while staged files are being installed

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession validates opts, probes the application directory and sweeps
// leftovers of earlier runs. It fails with ErrSessionActive while another
// session is open. An unwritable directory does not fail NewSession: the
// session starts in StateCannotWriteOnDir instead.
func NewSession(opts Options) (*Session, error) {
	if !activeSession.CompareAndSwap(false, true) {
		return nil, ErrSessionActive
	}
	s, err := newSession(opts)
	if err != nil {
		activeSession.Store(false)
		return nil, err
	}
	return s, nil
}

func newSession(opts Options) (*Session, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	local, err := Resolve(opts.CurrentVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid program version: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:    opts,
		log:     opts.Logger,
		bus:     newEventBus(opts.Dispatcher),
		local:   local,
		ctx:     ctx,
		cancel:  cancel,
		state:   types.StateIdle,
		message: "Idle...",
		done:    make(chan struct{}),
	}
	s.supervisor = NewDownloadSupervisor(SupervisorConfig{
		Downloader:  opts.Downloader,
		TempRoot:    opts.TempRoot,
		MaxRetries:  opts.MaxRetries,
		StallWindow: opts.StallWindow,
		SettleDelay: opts.SettleDelay,
		Logger:      opts.Logger.WithField("component", "download"),
	}, SupervisorHooks{
		Progress:   s.onDownloadProgress,
		Retry:      s.onRetry,
		Canceled:   s.onDownloadCanceled,
		Downloaded: s.onDownloaded,
		Handoff:    s.install,
	})

	s.log.Debugf("Program: %s %s (%s)", opts.Program.Path, local, Detect())

	if err := ProbeWritable(opts.AppDir); err != nil {
		s.log.WithError(err).Warn("Application directory is not writable")
		s.cannotWrite = true
		s.state = types.StateCannotWriteOnDir
		s.message = fmt.Sprintf("Cannot write on %s. Please consider moving %s to another location or running it with elevated rights",
			opts.AppDir, opts.Program.FileName)
		s.err = err
		return s, nil
	}

	if opts.KeepOriginalName {
		renamed, err := opts.Program.RenameTo(opts.Program.CanonicalName(opts.OriginalName))
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to restore original file name: %w", err)
		}
		if renamed.Path != opts.Program.Path {
			s.log.Infof("File renamed: %s -> %s", opts.Program.FileName, renamed.FileName)
			s.opts.Program = renamed
		}
	}

	if !opts.SkipSweep {
		result, err := Sweep(SweepOptions{
			TempRoot:     opts.TempRoot,
			AppDir:       opts.AppDir,
			BackupSuffix: opts.BackupSuffix,
			MaxRetries:   opts.MaxRetries,
			Logger:       opts.Logger.WithField("component", "sweep"),
		})
		if err != nil {
			s.log.WithError(err).Warn("Startup sweep incomplete")
		}
		s.sweep = result
	}

	return s, nil
}

// Subscribe registers fn for one kind of event and returns a function that
// removes it. With the inline dispatcher, listeners run while the session
// is mid-operation and must not call CheckForUpdate or BeginUpdate.
func (s *Session) Subscribe(kind EventKind, fn Listener) func() {
	return s.bus.subscribe(kind, fn)
}

// SubscribeAll registers fn for every event.
func (s *Session) SubscribeAll(fn Listener) func() {
	return s.bus.subscribe(0, fn)
}

// CheckForUpdate fetches the latest release and compares it with the
// running version. Repeated calls refetch until an update has started;
// after a lookup failure they return the same error without a request.
func (s *Session) CheckForUpdate(ctx context.Context) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	available, err := s.checkForUpdate(ctx)
	if err != nil && s.lookupFailed() {
		s.finish()
	}
	return available, err
}

func (s *Session) lookupFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchErr != nil
}

func (s *Session) checkForUpdate(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	if s.fetchErr != nil {
		err := s.fetchErr
		s.mu.Unlock()
		return false, err
	}
	if s.state.IsBusy() || (s.state.IsTerminal() && !s.cannotWrite) {
		available := s.available
		s.mu.Unlock()
		return available, nil
	}
	prev, prevMsg := s.state, s.message
	cannotWrite := s.cannotWrite
	s.mu.Unlock()

	if !cannotWrite {
		s.setState(types.StateFetching, "Fetching GitHub API")
	}
	s.log.Debugf("Fetching latest release of %s/%s", s.opts.Owner, s.opts.Repo)

	release, err := s.opts.Source.GetLatestRelease(ctx, s.opts.Owner, s.opts.Repo)
	if err != nil {
		if ctx.Err() != nil {
			s.setState(prev, prevMsg)
			return false, ctx.Err()
		}
		return false, s.failLookup(err)
	}

	if release.Name == "" {
		release.Name = release.TagName
	}
	remote, err := Resolve(release.TagName)
	if err != nil {
		return false, s.failLookup(err)
	}

	if !cannotWrite {
		s.setState(types.StateCheckingUpdate, "Checking Update...")
	}
	available := IsNewer(remote, s.local)

	s.mu.Lock()
	s.release = release
	s.available = available
	s.mu.Unlock()

	s.log.Infof("Latest release %s (%s), running %s", release.Name, remote, s.local)

	switch {
	case cannotWrite && available:
		s.setState(types.StateCannotWriteOnDir, fmt.Sprintf(
			"%s has an update available, but cannot write on %s. Please consider moving %s to another location or running it with elevated rights",
			s.opts.Program.FileName, s.opts.AppDir, s.opts.Program.FileName))
	case cannotWrite:
	case available:
		s.setState(types.StateUpdateAvailable, "Update available!")
	default:
		s.setState(types.StateNoUpdateAvailable, "No update available")
	}
	return available, nil
}

// failLookup records a release lookup failure as a terminal state.
func (s *Session) failLookup(err error) error {
	state := types.StateRepoError
	msg := fmt.Sprintf("Repository error: %v", err)
	if errors.Is(err, ErrRepoNotFound) {
		state = types.StateRepoNotFound
		msg = "Repository not found"
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		msg = fmt.Sprintf("Repository error: cannot read a version from tag %q", perr.Tag)
	}
	s.log.WithError(err).Warnf("Release lookup for %s/%s failed", s.opts.Owner, s.opts.Repo)

	s.mu.Lock()
	s.fetchErr = err
	s.err = err
	s.mu.Unlock()

	s.setState(state, msg)
	return err
}

// BeginUpdate selects the release asset and starts downloading it. It
// returns once the download is running; progress and the outcome arrive as
// events, and Wait blocks until a terminal state. The release is fetched
// first if CheckForUpdate was not called.
func (s *Session) BeginUpdate(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	state := s.state
	needFetch := s.release == nil && s.fetchErr == nil
	s.mu.Unlock()

	if state.IsBusy() {
		return ErrBusy
	}
	switch state {
	case types.StateCanceled, types.StateInstallFailed, types.StateInstalled, types.StateAssetNotFound:
		return ErrSessionFinished
	}

	if needFetch {
		if _, err := s.checkForUpdate(ctx); err != nil && !s.lookupFailed() {
			return err
		}
	}

	s.mu.Lock()
	fetchErr, cannotWrite, release := s.fetchErr, s.cannotWrite, s.release
	s.mu.Unlock()

	if fetchErr != nil {
		s.notifyFailure(fetchErr)
		s.finish()
		return fetchErr
	}

	if cannotWrite {
		s.notifyFailure(ErrCannotWriteOnDir)
		s.finish()
		return ErrCannotWriteOnDir
	}

	asset, ok := release.FindAsset(s.opts.AssetName)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrAssetNotFound, s.opts.AssetName)
		s.log.Warnf("%s: not found in release assets", s.opts.AssetName)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.setState(types.StateAssetNotFound, fmt.Sprintf("%s/%s: %s not found in release assets",
			s.opts.Owner, s.opts.Repo, s.opts.AssetName))
		s.notifyFailure(err)
		s.finish()
		return err
	}

	s.mu.Lock()
	s.asset = &asset
	s.progress = 0
	s.mu.Unlock()
	s.setState(types.StateDownloading, "Downloading update...")

	if err := s.supervisor.Start(s.ctx, asset); err != nil {
		s.onDownloadCanceled(err)
		return err
	}
	return nil
}

// notifyFailure publishes the pair of events hosts use to learn that the
// update ended before any download started.
func (s *Session) notifyFailure(err error) {
	st := s.Snapshot()
	for _, kind := range []EventKind{EventCanceled, EventInstallFailed} {
		s.bus.publish(Event{Kind: kind, State: st.State, ShortState: st.ShortState, Message: st.Message, Err: err})
	}
}

func (s *Session) onDownloadProgress(p Progress, percent int) {
	s.mu.Lock()
	if percent < s.progress && s.state == types.StateDownloading {
		percent = s.progress
	}
	s.progress = percent
	state := s.state
	s.mu.Unlock()

	if state != types.StateDownloading {
		s.setState(types.StateDownloading, "Downloading update...")
	}
	st := s.Snapshot()
	s.bus.publish(Event{
		Kind:       EventDownloadProgress,
		State:      st.State,
		ShortState: st.ShortState,
		Message:    st.Message,
		Percent:    percent,
		BytesDone:  p.BytesDone,
		BytesTotal: p.BytesTotal,
	})
}

func (s *Session) onRetry(retryCount int) {
	s.mu.Lock()
	s.progress = 0
	s.mu.Unlock()

	s.setState(types.StateRetrying, fmt.Sprintf("Retrying download... %d/%d", retryCount, s.opts.MaxRetries))
	st := s.Snapshot()
	s.bus.publish(Event{
		Kind:       EventRetry,
		State:      st.State,
		ShortState: st.ShortState,
		Message:    st.Message,
		Attempt:    retryCount,
		MaxRetries: s.opts.MaxRetries,
	})
}

func (s *Session) onDownloadCanceled(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.setState(types.StateCanceled, "Download canceled")
	st := s.Snapshot()
	s.bus.publish(Event{Kind: EventCanceled, State: st.State, ShortState: st.ShortState, Message: st.Message, Err: err})
	s.finish()
}

func (s *Session) onDownloaded(string) {
	s.setState(types.StateDownloaded, "Update downloaded")
}

// install unpacks the staged asset if needed and moves the staged tree into
// the application directory.
func (s *Session) install(stagingDir, assetPath string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.installs.Add(1)
	defer s.installs.Done()
	asset := *s.asset
	s.progress = 0
	s.mu.Unlock()

	s.setState(types.StateInstalling, "Installing Update...")

	if err := s.prepareStaging(stagingDir, assetPath, asset); err != nil {
		s.installFailed(stagingDir, err)
		return
	}

	tracker := NewProgressTracker(s.onInstallProgress)
	installer := NewInstaller(InstallerOptions{
		BackupSuffix: s.opts.BackupSuffix,
		Progress:     tracker,
		Logger:       s.log.WithField("component", "installer"),
	})
	if err := installer.Install(stagingDir, s.opts.AppDir); err != nil {
		s.installFailed(stagingDir, err)
		return
	}

	if err := os.RemoveAll(stagingDir); err != nil {
		s.log.WithError(err).Debug("Failed to remove staging directory")
	}

	s.mu.Lock()
	s.progress = 100
	s.mu.Unlock()
	s.setState(types.StateInstalled, "Update installed!")
	s.log.Info("Update installed")

	select {
	case <-time.After(s.opts.FinishDelay):
	case <-s.ctx.Done():
		s.finish()
		return
	}

	st := s.Snapshot()
	s.bus.publish(Event{Kind: EventUpdateFinished, State: st.State, ShortState: st.ShortState, Message: st.Message, Percent: 100})
	s.finish()
}

// prepareStaging extracts an archive asset in place and renames the file
// shipped under the original program name to the running file name.
func (s *Session) prepareStaging(stagingDir, assetPath string, asset Asset) error {
	if asset.IsArchive() {
		archive := filepath.Join(stagingDir, archivePrefix+asset.Name)
		if err := os.Rename(assetPath, archive); err != nil {
			return &InstallError{Op: "rename", Path: assetPath, Err: err}
		}
		if err := s.opts.Extractor(archive, stagingDir); err != nil {
			return &InstallError{Op: "extract", Path: archive, Err: err}
		}
		if err := os.Remove(archive); err != nil {
			return &InstallError{Op: "remove", Path: archive, Err: err}
		}
		s.log.Debugf("Extracted %s", asset.Name)
	}

	if s.opts.OriginalName == "" {
		return nil
	}
	canonical := s.opts.Program.CanonicalName(s.opts.OriginalName)
	if canonical == s.opts.Program.FileName {
		return nil
	}
	src := filepath.Join(stagingDir, canonical)
	if _, err := os.Stat(src); err != nil {
		return nil
	}
	dst := filepath.Join(stagingDir, s.opts.Program.FileName)
	if err := os.Rename(src, dst); err != nil {
		return &InstallError{Op: "rename", Path: src, Err: err}
	}
	s.log.Debugf("Staged %s as %s", canonical, s.opts.Program.FileName)
	return nil
}

func (s *Session) onInstallProgress(percent int) {
	s.mu.Lock()
	s.progress = percent
	s.mu.Unlock()

	st := s.Snapshot()
	s.bus.publish(Event{Kind: EventInstallProgress, State: st.State, ShortState: st.ShortState, Message: st.Message, Percent: percent})
}

func (s *Session) installFailed(stagingDir string, err error) {
	s.log.WithError(err).Error("Installation failed")
	if rerr := os.RemoveAll(stagingDir); rerr != nil {
		s.log.WithError(rerr).Debug("Failed to remove staging directory")
	}

	s.mu.Lock()
	s.err = err
	s.progress = 0
	s.mu.Unlock()

	s.setState(types.StateInstallFailed, "Installation failed")
	st := s.Snapshot()
	s.bus.publish(Event{Kind: EventInstallFailed, State: st.State, ShortState: st.ShortState, Message: st.Message, Err: err})
	s.finish()
}

// setState records a transition and publishes EventStateChanged when the
// state or message changed.
func (s *Session) setState(state State, msg string) {
	s.mu.Lock()
	if s.state == state && s.message == msg {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.message = msg
	ev := Event{
		Kind:       EventStateChanged,
		State:      state,
		ShortState: state.Short(),
		Message:    msg,
		Percent:    s.progress,
	}
	s.mu.Unlock()

	s.log.WithField("state", state).Debug(msg)
	s.bus.publish(ev)
}

// finish marks the session terminal and drops every listener. Events
// already handed to the dispatcher are still delivered.
func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
	s.bus.clear()
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session reaches a terminal state or ctx ends.
func (s *Session) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.done:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

// Close stops any running download, drops all listeners and releases the
// process-wide session slot. An install already in progress is allowed to
// finish or roll back first, so Close must not be called from a listener.
// It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.supervisor.Stop()
	s.bus.clear()
	// The next session's sweep would remove the staging directory and the
	// backups this install relies on.
	s.installs.Wait()
	activeSession.Store(false)
	return nil
}

// Snapshot returns the session's observable fields.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:           s.state,
		ShortState:      s.state.Short(),
		Message:         s.message,
		Progress:        s.progress,
		RetryCount:      s.supervisor.RetryCount(),
		MaxRetries:      s.opts.MaxRetries,
		UpdateAvailable: s.available,
		ProgramVersion:  s.local.String(),
		ProgramFileName: s.opts.Program.FileName,
		AssetName:       s.opts.AssetName,
		Platform:        Detect(),
	}
	if s.release != nil {
		st.ReleaseVersion = s.release.TagName
		st.ReleaseName = s.release.Name
		st.ReleaseBody = s.release.Body
		if a, ok := s.release.FindAsset(s.opts.AssetName); ok {
			st.Asset = &a
		}
	}
	return st
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ShortState returns the coarse summary of the current state.
func (s *Session) ShortState() ShortState {
	return s.State().Short()
}

// Message returns the human-readable description of the current state.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Progress returns the percentage of the current download or install phase.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// RetryCount returns how many times the download stalled.
func (s *Session) RetryCount() int {
	return s.supervisor.RetryCount()
}

// Err returns the cause of a failed terminal state, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Release returns the fetched release, or nil before a successful lookup.
func (s *Session) Release() *ReleaseMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release
}

// ReleaseName returns the release display name, falling back to its tag.
func (s *Session) ReleaseName() string {
	if r := s.Release(); r != nil {
		return r.Name
	}
	return ""
}

// ReleaseBody returns the release notes.
func (s *Session) ReleaseBody() string {
	if r := s.Release(); r != nil {
		return r.Body
	}
	return ""
}

// ReleaseVersion returns the release tag.
func (s *Session) ReleaseVersion() string {
	if r := s.Release(); r != nil {
		return r.TagName
	}
	return ""
}

// ProgramVersion returns the running program's version.
func (s *Session) ProgramVersion() string {
	return s.local.String()
}

// ProgramFileName returns the running program's file name.
func (s *Session) ProgramFileName() string {
	return s.opts.Program.FileName
}

// SweepResult returns what the startup sweep removed, or nil if it did not run.
func (s *Session) SweepResult() *SweepResult {
	return s.sweep
}

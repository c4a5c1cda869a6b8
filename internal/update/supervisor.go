package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// StagingPrefix names per-attempt staging directories under the temp root.
const StagingPrefix = "ezupdate"

// StagingDir returns the staging directory used by the given retry attempt.
// The name is deterministic so that a later run can sweep leftovers.
func StagingDir(tempRoot string, attempt int) string {
	return filepath.Join(tempRoot, fmt.Sprintf("%s%d", StagingPrefix, attempt))
}

// SupervisorConfig configures a DownloadSupervisor.
type SupervisorConfig struct {
	Downloader  Downloader
	TempRoot    string
	MaxRetries  int
	StallWindow time.Duration
	SettleDelay time.Duration
	Logger      *log.Entry
}

// SupervisorHooks receive the supervisor's notifications. Nil hooks are skipped.
// Hooks are called without any supervisor lock held.
type SupervisorHooks struct {
	// Progress is called for every tick of the current attempt. percent is
	// zero while the total size is unknown.
	Progress func(p Progress, percent int)
	// Retry is called after a stall, before the next attempt starts.
	Retry func(retryCount int)
	// Canceled is called once the retry budget is exhausted.
	Canceled func(err error)
	// Downloaded is called as soon as the asset is complete.
	Downloaded func(assetPath string)
	// Handoff is called after the settle delay with the staged tree.
	Handoff func(stagingDir, assetPath string)
}

// DownloadSupervisor runs a single asset download, restarting it from byte
// zero in a fresh staging directory whenever no progress arrives for a full
// stall window.
type DownloadSupervisor struct {
	cfg     SupervisorConfig
	hooks   SupervisorHooks
	log     *log.Entry
	tracker *ProgressTracker
	dog     *watchdog

	mu         sync.Mutex
	parent     context.Context
	asset      Asset
	started    bool
	stopped    bool
	stopCh     chan struct{}
	retryCount int
	attempt    uint64 // id of the live attempt; bumped to orphan it
	active     bool   // an attempt is transferring and may still stall
	cancel     context.CancelFunc
	done       chan struct{}
	lastBytes  int64
	sizeKnown  bool
}

// NewDownloadSupervisor creates an idle supervisor.
func NewDownloadSupervisor(cfg SupervisorConfig, hooks SupervisorHooks) *DownloadSupervisor {
	if cfg.Downloader == nil {
		cfg.Downloader = NewHTTPDownloader()
	}
	if cfg.TempRoot == "" {
		cfg.TempRoot = os.TempDir()
	}
	if cfg.StallWindow <= 0 {
		cfg.StallWindow = DefaultStallWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "download")
	}
	s := &DownloadSupervisor{
		cfg:     cfg,
		hooks:   hooks,
		log:     logger,
		tracker: NewProgressTracker(nil),
		stopCh:  make(chan struct{}),
	}
	s.dog = newWatchdog(cfg.StallWindow, s.onStall)
	return s
}

// Start begins the first attempt. The download keeps running after Start
// returns; it is bound to ctx, not to the call.
func (s *DownloadSupervisor) Start(ctx context.Context, asset Asset) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrBusy
	}
	s.started = true
	s.parent = ctx
	s.asset = asset
	s.mu.Unlock()

	s.log.Infof("Downloading: %s | %s", asset.Name, asset.DownloadURL)
	return s.startAttempt()
}

// RetryCount returns the number of stalls seen so far.
func (s *DownloadSupervisor) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// Percentage returns the download progress of the current attempt.
func (s *DownloadSupervisor) Percentage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sizeKnown {
		return 0
	}
	return s.tracker.Percentage()
}

// Stop cancels any running attempt and waits for it to return.
func (s *DownloadSupervisor) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.active = false
	s.attempt++
	close(s.stopCh)
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.dog.disarm()
	if cancel != nil {
		cancel()
		s.waitDisposed(done)
	}
}

func (s *DownloadSupervisor) startAttempt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSessionClosed
	}

	dir := StagingDir(s.cfg.TempRoot, s.retryCount)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear staging directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}

	s.attempt++
	s.active = true
	id := s.attempt
	s.tracker.Reset()
	s.lastBytes = 0
	s.sizeKnown = s.asset.Size > 0
	if s.sizeKnown {
		s.tracker.SetTotal(s.asset.Size)
	}

	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	dst := filepath.Join(dir, s.asset.Name)
	s.dog.arm()
	go s.run(ctx, id, dir, dst, done)
	return nil
}

func (s *DownloadSupervisor) run(ctx context.Context, id uint64, dir, dst string, done chan struct{}) {
	err := s.cfg.Downloader.Download(ctx, s.asset.DownloadURL, dst, func(p Progress) {
		s.onProgress(id, p)
	})
	close(done)
	s.onFinished(id, dir, dst, err)
}

func (s *DownloadSupervisor) onProgress(id uint64, p Progress) {
	s.mu.Lock()
	if id != s.attempt || s.stopped {
		s.mu.Unlock()
		return
	}
	s.dog.touch()
	if !s.sizeKnown && p.BytesTotal > 0 {
		s.tracker.SetTotal(p.BytesTotal)
		s.sizeKnown = true
	}
	delta := p.BytesDone - s.lastBytes
	s.lastBytes = p.BytesDone
	s.tracker.RecordUnits(delta)
	percent := 0
	if s.sizeKnown {
		percent = s.tracker.Percentage()
	}
	s.mu.Unlock()

	if s.hooks.Progress != nil {
		s.hooks.Progress(p, percent)
	}
}

func (s *DownloadSupervisor) onFinished(id uint64, dir, dst string, err error) {
	s.mu.Lock()
	if id != s.attempt || s.stopped {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.mu.Unlock()
		if s.parent.Err() != nil {
			return
		}
		// No more ticks will arrive, so the watchdog turns this into a retry.
		s.log.WithError(err).Warn("Download attempt failed, waiting for the stall window")
		return
	}
	s.attempt++
	s.active = false
	s.dog.disarm()
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	if info, statErr := os.Stat(dst); statErr == nil {
		s.log.Infof("Download completed: %s", humanize.Bytes(uint64(info.Size())))
	}
	if s.hooks.Downloaded != nil {
		s.hooks.Downloaded(dst)
	}

	select {
	case <-time.After(s.cfg.SettleDelay):
	case <-s.stopCh:
		return
	}
	if s.hooks.Handoff != nil {
		s.hooks.Handoff(dir, dst)
	}
}

func (s *DownloadSupervisor) onStall() {
	s.mu.Lock()
	if s.stopped || !s.active {
		s.mu.Unlock()
		return
	}
	s.attempt++
	s.active = false
	cancel, done := s.cancel, s.done
	s.retryCount++
	n := s.retryCount
	exhausted := n >= s.cfg.MaxRetries
	s.mu.Unlock()

	cancel()
	s.waitDisposed(done)

	if exhausted {
		s.log.Warnf("Download stalled %d times, giving up", n)
		if s.hooks.Canceled != nil {
			s.hooks.Canceled(ErrDownloadStalled)
		}
		return
	}

	s.log.Warnf("Retrying download %d/%d", n, s.cfg.MaxRetries)
	if s.hooks.Retry != nil {
		s.hooks.Retry(n)
	}
	if err := s.startAttempt(); err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return
		}
		s.log.WithError(err).Error("Failed to restart download")
		if s.hooks.Canceled != nil {
			s.hooks.Canceled(err)
		}
	}
}

// waitDisposed waits for a canceled attempt to return. A downloader that
// ignores cancellation is abandoned after one stall window.
func (s *DownloadSupervisor) waitDisposed(done chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(s.cfg.StallWindow):
		s.log.Warn("Download did not stop after cancellation")
	}
}

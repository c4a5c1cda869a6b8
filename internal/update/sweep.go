package update

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// SweepOptions selects what a startup sweep removes.
type SweepOptions struct {
	TempRoot     string
	AppDir       string
	BackupSuffix string
	MaxRetries   int
	// RemoveTimeout bounds the retries spent on a file that is still locked,
	// typically by the previous process that is shutting down.
	RemoveTimeout time.Duration
	Logger        *log.Entry
}

// SweepResult lists what a sweep removed.
type SweepResult struct {
	RemovedDirs    []string `json:"removed_dirs" yaml:"removed_dirs" toml:"removed_dirs"`
	RemovedBackups []string `json:"removed_backups" yaml:"removed_backups" toml:"removed_backups"`
}

// Empty reports whether nothing was removed.
func (r *SweepResult) Empty() bool {
	return len(r.RemovedDirs) == 0 && len(r.RemovedBackups) == 0
}

// Sweep removes what an earlier run may have left behind: the staging
// directory of every attempt index from 0 to MaxRetries, and every file
// under AppDir carrying the backup suffix. It keeps going past failures and
// returns them combined.
func Sweep(opts SweepOptions) (*SweepResult, error) {
	if opts.TempRoot == "" {
		opts.TempRoot = os.TempDir()
	}
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = DefaultBackupSuffix
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RemoveTimeout <= 0 {
		opts.RemoveTimeout = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "sweep")
	}

	result := &SweepResult{}
	var errs *multierror.Error

	for n := 0; n <= opts.MaxRetries; n++ {
		dir := StagingDir(opts.TempRoot, n)
		if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := removeWithRetry(dir, opts.RemoveTimeout, os.RemoveAll); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("remove staging directory %s: %w", dir, err))
			continue
		}
		logger.Debugf("Removed staging directory %s", dir)
		result.RemovedDirs = append(result.RemovedDirs, dir)
	}

	if opts.AppDir != "" {
		walkErr := filepath.WalkDir(opts.AppDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				errs = multierror.Append(errs, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), opts.BackupSuffix) {
				return nil
			}
			if err := removeWithRetry(path, opts.RemoveTimeout, os.Remove); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("remove backup %s: %w", path, err))
				return nil
			}
			logger.Debugf("Removed backup file %s", path)
			result.RemovedBackups = append(result.RemovedBackups, path)
			return nil
		})
		if walkErr != nil {
			errs = multierror.Append(errs, walkErr)
		}
	}

	if !result.Empty() {
		logger.Infof("Swept %d staging directories and %d backup files",
			len(result.RemovedDirs), len(result.RemovedBackups))
	}
	return result, errs.ErrorOrNil()
}

func removeWithRetry(path string, timeout time.Duration, remove func(string) error) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         500 * time.Millisecond,
		MaxElapsedTime:      timeout,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return backoff.Retry(func() error {
		err := remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}, b)
}

package update

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// DefaultBackupSuffix marks a destination file displaced by an install.
const DefaultBackupSuffix = ".EZold"

// EntryKind tags a transaction log entry.
type EntryKind int

const (
	// EntryMovedFile is a file placed at Path; a backup may exist at Path+suffix.
	EntryMovedFile EntryKind = iota
	// EntryCreatedDir is a directory created by the install; rollback removes it wholesale.
	EntryCreatedDir
)

func (k EntryKind) String() string {
	switch k {
	case EntryMovedFile:
		return "moved-file"
	case EntryCreatedDir:
		return "created-directory"
	}
	return fmt.Sprintf("EntryKind(%d)", int(k))
}

// TransactionEntry is one destination path touched by the current install pass.
type TransactionEntry struct {
	Path      string
	Kind      EntryKind
	HadBackup bool
	// PriorBackup is where a backup left by an earlier install was moved
	// so that it is not overwritten. Rollback puts it back.
	PriorBackup string
}

// InstallerOptions configures an Installer.
type InstallerOptions struct {
	BackupSuffix string
	Progress     *ProgressTracker
	Logger       *log.Entry
}

// Installer moves a staged tree into the application directory and can undo
// a partially applied install.
type Installer struct {
	backupSuffix string
	progress     *ProgressTracker
	log          *log.Entry
	txlog        []TransactionEntry

	// file operations, replaceable in tests
	backupFile func(path, backup string) error
	moveFile   func(src, dst string) error
	makeDir    func(path string, perm os.FileMode) error
}

// NewInstaller creates an installer.
func NewInstaller(opts InstallerOptions) *Installer {
	suffix := opts.BackupSuffix
	if suffix == "" {
		suffix = DefaultBackupSuffix
	}
	progress := opts.Progress
	if progress == nil {
		progress = NewProgressTracker(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "installer")
	}
	return &Installer{
		backupSuffix: suffix,
		progress:     progress,
		log:          logger,
		backupFile:   os.Rename,
		moveFile:     moveFile,
		makeDir:      os.Mkdir,
	}
}

// Log returns a copy of the current transaction log.
func (i *Installer) Log() []TransactionEntry {
	out := make([]TransactionEntry, len(i.txlog))
	copy(out, i.txlog)
	return out
}

// Install moves every file under stagingDir into destDir, depth first.
// Existing destination files are renamed with the backup suffix first.
// On the first failure the partial install is rolled back and an
// *InstallError is returned.
func (i *Installer) Install(stagingDir, destDir string) error {
	info, err := os.Stat(stagingDir)
	if err != nil {
		return &InstallError{Op: "stat", Path: stagingDir, Err: err}
	}
	if !info.IsDir() {
		return &InstallError{Op: "stat", Path: stagingDir, Err: errors.New("not a directory")}
	}

	total, err := countFiles(stagingDir)
	if err != nil {
		return &InstallError{Op: "walk", Path: stagingDir, Err: err}
	}

	i.txlog = nil
	i.progress.Reset()
	i.progress.SetTotal(total)

	i.log.Infof("Installing %d files from %s into %s", total, stagingDir, destDir)

	if err := i.installDir(stagingDir, destDir); err != nil {
		i.log.Warnf("Install failed, restoring backup files: %v", err)
		if rerr := i.Rollback(); rerr != nil {
			i.log.Debugf("Rollback incomplete: %v", rerr)
		}
		return err
	}

	for _, entry := range i.txlog {
		if entry.PriorBackup == "" {
			continue
		}
		if err := os.Remove(entry.PriorBackup); err != nil {
			i.log.Debugf("Failed to remove superseded backup %s: %v", entry.PriorBackup, err)
		}
	}
	i.txlog = nil
	return nil
}

func (i *Installer) installDir(srcDir, destDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return &InstallError{Op: "read", Path: srcDir, Err: err}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := i.installFile(filepath.Join(srcDir, entry.Name()), filepath.Join(destDir, entry.Name())); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		dest := filepath.Join(destDir, entry.Name())

		destInfo, err := os.Stat(dest)
		switch {
		case err == nil && destInfo.IsDir():
			i.log.Debugf("Folder: Accessing %s", dest)
		case err == nil:
			return &InstallError{Op: "mkdir", Path: dest, Err: errors.New("a file is in the way")}
		case errors.Is(err, fs.ErrNotExist):
			i.log.Debugf("Folder: Creating %s", dest)
			perm := os.FileMode(0o755)
			if srcInfo, serr := entry.Info(); serr == nil {
				perm = srcInfo.Mode().Perm()
			}
			if err := i.makeDir(dest, perm); err != nil {
				return &InstallError{Op: "mkdir", Path: dest, Err: err}
			}
			i.txlog = append(i.txlog, TransactionEntry{Path: dest, Kind: EntryCreatedDir})
		default:
			return &InstallError{Op: "stat", Path: dest, Err: err}
		}

		if err := i.installDir(src, dest); err != nil {
			return err
		}
	}

	return nil
}

func (i *Installer) installFile(src, dest string) error {
	entry := TransactionEntry{Path: dest, Kind: EntryMovedFile}
	if _, err := os.Lstat(dest); err == nil {
		backup := dest + i.backupSuffix
		if _, err := os.Lstat(backup); err == nil {
			parked, err := parkFile(backup)
			if err != nil {
				return &InstallError{Op: "backup", Path: backup, Err: err}
			}
			i.log.Debugf("File: %s -> %s", backup, parked)
			entry.PriorBackup = parked
		}
		if err := i.backupFile(dest, backup); err != nil {
			if entry.PriorBackup != "" {
				_ = os.Rename(entry.PriorBackup, backup)
			}
			return &InstallError{Op: "backup", Path: dest, Err: err}
		}
		entry.HadBackup = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &InstallError{Op: "stat", Path: dest, Err: err}
	}

	// Logged before the move so a failed move still restores the backup.
	i.txlog = append(i.txlog, entry)

	i.log.Debugf("File: %s -> %s", src, dest)
	if err := i.moveFile(src, dest); err != nil {
		return &InstallError{Op: "move", Path: dest, Err: err}
	}

	i.progress.RecordUnit()
	return nil
}

// Rollback reverses the transaction log, newest entry first. It is best
// effort: every step is attempted and failures are collected rather than
// aborting. The log and the progress counters are cleared afterwards.
func (i *Installer) Rollback() error {
	var result *multierror.Error

	for n := len(i.txlog) - 1; n >= 0; n-- {
		entry := i.txlog[n]
		switch entry.Kind {
		case EntryCreatedDir:
			if err := os.RemoveAll(entry.Path); err != nil {
				result = multierror.Append(result, fmt.Errorf("remove directory %s: %w", entry.Path, err))
			}
		case EntryMovedFile:
			if err := os.Remove(entry.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				result = multierror.Append(result, fmt.Errorf("remove %s: %w", entry.Path, err))
			}
			if entry.HadBackup {
				if err := os.Rename(entry.Path+i.backupSuffix, entry.Path); err != nil {
					result = multierror.Append(result, fmt.Errorf("restore %s: %w", entry.Path, err))
				}
			}
			if entry.PriorBackup != "" {
				if err := os.Rename(entry.PriorBackup, entry.Path+i.backupSuffix); err != nil {
					result = multierror.Append(result, fmt.Errorf("restore %s: %w", entry.PriorBackup, err))
				}
			}
		}
	}

	i.txlog = nil
	i.progress.Reset()

	return result.ErrorOrNil()
}

// parkFile renames path to the first free "path.N" and returns the new name.
func parkFile(path string) (string, error) {
	for n := 1; ; n++ {
		parked := fmt.Sprintf("%s.%d", path, n)
		_, err := os.Lstat(parked)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		return parked, os.Rename(path, parked)
	}
}

func countFiles(root string) (int64, error) {
	var n int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	return n, err
}

// moveFile renames src to dst, falling back to copy and delete when the two
// paths are on different filesystems.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	if cerr := copyFile(src, dst); cerr != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("%w (copy fallback: %v)", err, cerr)
	}
	return os.Remove(src)
}

// copyFile copies src to dst, preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

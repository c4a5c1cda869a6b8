package update

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// WriteProbeName is the marker file created and removed to test writability.
const WriteProbeName = "UpdaterWriteTest.EZ"

// Platform is the OS and architecture the program runs on.
type Platform struct {
	OS   string `json:"os" yaml:"os" toml:"os"`
	Arch string `json:"arch" yaml:"arch" toml:"arch"`
}

// Detect returns the current platform (OS and architecture)
func Detect() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Program locates the running application on disk.
type Program struct {
	Path     string `json:"path" yaml:"path" toml:"path"`
	Dir      string `json:"dir" yaml:"dir" toml:"dir"`
	FileName string `json:"file_name" yaml:"file_name" toml:"file_name"`
}

// DetectProgram resolves the running executable, following symlinks.
func DetectProgram() (Program, error) {
	exe, err := os.Executable()
	if err != nil {
		return Program{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return ProgramAt(exe), nil
}

// ProgramAt describes a program installed at path.
func ProgramAt(path string) Program {
	path = filepath.Clean(path)
	return Program{
		Path:     path,
		Dir:      filepath.Dir(path),
		FileName: filepath.Base(path),
	}
}

// Ext returns the program file extension, e.g. ".exe", or "".
func (p Program) Ext() string {
	return filepath.Ext(p.FileName)
}

// CanonicalName is the name the program ships under in releases:
// originalName plus the running file's extension, or the running file
// name itself when originalName is empty.
func (p Program) CanonicalName(originalName string) string {
	if originalName == "" {
		return p.FileName
	}
	if strings.EqualFold(filepath.Ext(originalName), p.Ext()) && p.Ext() != "" {
		return originalName
	}
	return originalName + p.Ext()
}

// maxOldCopies bounds the "<name> - old (N)" numbering used by RenameTo.
const maxOldCopies = 99

// RenameTo renames the program file to name in the same directory and
// returns the renamed program. A different file already called name is
// kept as "<name> - old (N)<ext>" with the lowest free N.
func (p Program) RenameTo(name string) (Program, error) {
	if name == p.FileName {
		return p, nil
	}
	target := filepath.Join(p.Dir, name)
	if _, err := os.Lstat(target); err == nil {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		moved := false
		for n := 1; n <= maxOldCopies; n++ {
			old := filepath.Join(p.Dir, fmt.Sprintf("%s - old (%d)%s", base, n, ext))
			if _, err := os.Lstat(old); err == nil {
				continue
			}
			if err := os.Rename(target, old); err != nil {
				return p, fmt.Errorf("failed to move %s aside: %w", target, err)
			}
			moved = true
			break
		}
		if !moved {
			return p, fmt.Errorf("failed to move %s aside: %d old copies already exist", target, maxOldCopies)
		}
	} else if !os.IsNotExist(err) {
		return p, err
	}

	if err := os.Rename(p.Path, target); err != nil {
		return p, fmt.Errorf("failed to rename %s: %w", p.Path, err)
	}
	return ProgramAt(target), nil
}

// ProbeWritable creates and removes a marker file in dir.
// Failure wraps ErrCannotWriteOnDir.
func ProbeWritable(dir string) error {
	probe := filepath.Join(dir, WriteProbeName)
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCannotWriteOnDir, dir, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(probe)
		return fmt.Errorf("%w: %s: %v", ErrCannotWriteOnDir, dir, err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCannotWriteOnDir, dir, err)
	}
	return nil
}

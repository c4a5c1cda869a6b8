package update

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adamancini/ezupdate/internal/types"
)

// State and ShortState are re-exported from the types package.
type (
	State      = types.State
	ShortState = types.ShortState
)

// ReleaseMetadata describes the latest release of the repository.
// It is immutable once fetched.
type ReleaseMetadata struct {
	TagName string  `json:"tag_name" yaml:"tag_name" toml:"tag_name"`
	Name    string  `json:"name" yaml:"name" toml:"name"`
	Body    string  `json:"body" yaml:"body" toml:"body"`
	HTMLURL string  `json:"html_url,omitempty" yaml:"html_url,omitempty" toml:"html_url,omitempty"`
	Assets  []Asset `json:"assets" yaml:"assets" toml:"assets"`
}

// FindAsset returns the asset whose name matches exactly.
func (r *ReleaseMetadata) FindAsset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Asset is a named downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	DownloadURL string `json:"browser_download_url" yaml:"download_url" toml:"download_url"`
	Size        int64  `json:"size,omitempty" yaml:"size,omitempty" toml:"size,omitempty"` // 0 when unknown
}

// IsArchive reports whether the asset must be extracted before install.
func (a Asset) IsArchive() bool {
	return strings.EqualFold(archiveExt(a.Name), ".zip")
}

func archiveExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[i:]
}

// Progress is a single tick reported by a Downloader.
type Progress struct {
	BytesDone  int64
	BytesTotal int64 // -1 when the server did not announce a length
}

// ReleaseSource fetches release metadata
type ReleaseSource interface {
	GetLatestRelease(ctx context.Context, owner, repo string) (*ReleaseMetadata, error)
}

// Downloader writes url to dst, calling progress as bytes arrive.
// It must return promptly once ctx is canceled.
type Downloader interface {
	Download(ctx context.Context, url, dst string, progress func(Progress)) error
}

// Extractor unpacks archivePath into destDir.
type Extractor func(archivePath, destDir string) error

var (
	// ErrRepoNotFound is returned by a ReleaseSource when the repository or its latest release is unknown.
	ErrRepoNotFound = errors.New("repository not found")
	// ErrAssetNotFound means the release has no asset with the configured name.
	ErrAssetNotFound = errors.New("asset not found in release")
	// ErrCannotWriteOnDir means the application directory is not writable.
	ErrCannotWriteOnDir = errors.New("cannot write on application directory")
	// ErrSessionActive is returned when a second session is opened in the same process.
	ErrSessionActive = errors.New("an update session is already active")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("update session is closed")
	// ErrSessionFinished is returned when an operation is attempted in a terminal state.
	ErrSessionFinished = errors.New("update session already reached a terminal state")
	// ErrDownloadStalled is the cause reported when every download attempt stalled.
	ErrDownloadStalled = errors.New("download stalled too many times")
	// ErrBusy is returned when BeginUpdate is called while a download or install runs.
	ErrBusy = errors.New("update already in progress")
)

// APIError is an error payload returned by the release source.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("release API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("release API returned status %d: %s", e.StatusCode, e.Message)
}

// InstallError reports the file operation that aborted an install.
type InstallError struct {
	Op   string
	Path string
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

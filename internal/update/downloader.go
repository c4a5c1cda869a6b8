package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// HTTPDownloader downloads release assets over HTTP
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
}

// NewHTTPDownloader creates a new HTTP downloader. The client has no overall
// timeout; stalls are detected by the caller's watchdog.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client:    &http.Client{},
		userAgent: fmt.Sprintf(userAgent, "dev"),
	}
}

// WithUserAgentVersion sets the version reported in the User-Agent header.
func (d *HTTPDownloader) WithUserAgentVersion(v string) *HTTPDownloader {
	d.userAgent = fmt.Sprintf(userAgent, v)
	return d
}

// Download streams url into dst, reporting progress after every write.
// A partially written dst is removed on failure.
func (d *HTTPDownloader) Download(ctx context.Context, url, dst string, progress func(Progress)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Debugf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file %q: %w", dst, err)
	}

	pw := &progressWriter{w: out, total: resp.ContentLength, report: progress}
	if progress != nil {
		progress(Progress{BytesDone: 0, BytesTotal: resp.ContentLength})
	}

	if _, err := io.Copy(pw, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to write response body to file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to close %q: %w", dst, err)
	}

	log.Debugf("downloaded %s to %s", humanize.Bytes(uint64(pw.done)), dst)
	return nil
}

// progressWriter counts bytes written through it.
type progressWriter struct {
	w      io.Writer
	done   int64
	total  int64
	report func(Progress)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.done += int64(n)
	if n > 0 && p.report != nil {
		p.report(Progress{BytesDone: p.done, BytesTotal: p.total})
	}
	return n, err
}

package update

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestStagingDir(t *testing.T) {
	if got, want := StagingDir("/tmp", 3), filepath.Join("/tmp", "ezupdate3"); got != want {
		t.Errorf("StagingDir() = %s, want %s", got, want)
	}
	if StagingDir("/tmp", 0) == StagingDir("/tmp", 1) {
		t.Error("attempts must get distinct staging directories")
	}
}

// tickingDownloader reports progress without a known total.
type tickingDownloader struct{}

func (tickingDownloader) Download(ctx context.Context, url, dst string, progress func(Progress)) error {
	for i := int64(1); i <= 3; i++ {
		progress(Progress{BytesDone: i * 10, BytesTotal: -1})
	}
	return os.WriteFile(dst, []byte("payload"), 0o644)
}

func TestDownloadSupervisor_UnknownSizeReportsZero(t *testing.T) {
	tempRoot := t.TempDir()
	var mu sync.Mutex
	var percents []int
	handoff := make(chan [2]string, 1)

	s := NewDownloadSupervisor(SupervisorConfig{
		Downloader:  tickingDownloader{},
		TempRoot:    tempRoot,
		MaxRetries:  4,
		StallWindow: time.Second,
		SettleDelay: time.Millisecond,
	}, SupervisorHooks{
		Progress: func(p Progress, percent int) {
			mu.Lock()
			percents = append(percents, percent)
			mu.Unlock()
		},
		Handoff: func(dir, path string) { handoff <- [2]string{dir, path} },
	})
	defer s.Stop()

	if err := s.Start(context.Background(), Asset{Name: "tool", DownloadURL: "u"}); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-handoff:
		if got[0] != StagingDir(tempRoot, 0) || got[1] != filepath.Join(StagingDir(tempRoot, 0), "tool") {
			t.Errorf("handoff = %v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no handoff")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, p := range percents {
		if p != 0 {
			t.Errorf("percent = %d with unknown size, want 0", p)
		}
	}
	if len(percents) != 3 {
		t.Errorf("progress ticks = %d, want 3", len(percents))
	}
	if err := s.Start(context.Background(), Asset{Name: "tool"}); err != ErrBusy {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}
}

func TestDownloadSupervisor_ClearsReusedStagingDir(t *testing.T) {
	tempRoot := t.TempDir()
	stale := filepath.Join(StagingDir(tempRoot, 0), "stale.txt")
	writeTree(t, StagingDir(tempRoot, 0), map[string]string{"stale.txt": "x"})

	handoff := make(chan struct{}, 1)
	s := NewDownloadSupervisor(SupervisorConfig{
		Downloader:  tickingDownloader{},
		TempRoot:    tempRoot,
		MaxRetries:  4,
		StallWindow: time.Second,
		SettleDelay: time.Millisecond,
	}, SupervisorHooks{
		Handoff: func(string, string) { handoff <- struct{}{} },
	})
	defer s.Stop()

	if err := s.Start(context.Background(), Asset{Name: "tool", DownloadURL: "u"}); err != nil {
		t.Fatal(err)
	}
	<-handoff
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale staging content should be removed before reuse")
	}
}

func TestDownloadSupervisor_StopDuringSettle(t *testing.T) {
	downloaded := make(chan struct{})
	s := NewDownloadSupervisor(SupervisorConfig{
		Downloader:  tickingDownloader{},
		TempRoot:    t.TempDir(),
		MaxRetries:  4,
		StallWindow: time.Second,
		SettleDelay: time.Hour,
	}, SupervisorHooks{
		Downloaded: func(string) { close(downloaded) },
		Handoff:    func(string, string) { t.Error("handoff after Stop") },
	})

	if err := s.Start(context.Background(), Asset{Name: "tool", DownloadURL: "u"}); err != nil {
		t.Fatal(err)
	}
	<-downloaded
	s.Stop()
	s.Stop()

	if err := s.Start(context.Background(), Asset{Name: "tool"}); err != ErrSessionClosed {
		t.Errorf("Start() after Stop error = %v", err)
	}
}

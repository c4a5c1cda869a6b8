package cmd

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/adamancini/ezupdate/internal/config"
	"github.com/adamancini/ezupdate/internal/output"
	"github.com/adamancini/ezupdate/internal/types"
	"github.com/adamancini/ezupdate/internal/update"
)

// releaseServer fakes the GitHub releases API and asset downloads.
type releaseServer struct {
	*httptest.Server
	tag       string
	asset     []byte
	notFound  bool
	downloads atomic.Int32
}

func newReleaseServer(t *testing.T, tag string, asset []byte) *releaseServer {
	t.Helper()
	rs := &releaseServer{tag: tag, asset: asset}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/rocket/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if rs.notFound {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tag_name": rs.tag,
			"name":     "Rocket " + rs.tag,
			"body":     "- faster liftoff",
			"assets": []map[string]interface{}{{
				"name":                 "app.zip",
				"browser_download_url": rs.URL + "/download/app.zip",
				"size":                 len(rs.asset),
			}},
		})
	})
	mux.HandleFunc("/download/app.zip", func(w http.ResponseWriter, r *http.Request) {
		rs.downloads.Add(1)
		w.Header().Set("Content-Length", fmt.Sprint(len(rs.asset)))
		_, _ = w.Write(rs.asset)
	})

	rs.Server = httptest.NewServer(mux)
	t.Cleanup(rs.Close)
	return rs
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type testEnv struct {
	appDir   string
	tempRoot string
	server   *releaseServer
}

// setup writes a config pointing at a fake release server and sets the
// global flags to use it.
func setup(t *testing.T, current, tag, asset, format string) *testEnv {
	t.Helper()
	env := &testEnv{
		appDir:   t.TempDir(),
		tempRoot: t.TempDir(),
		server:   newReleaseServer(t, tag, zipOf(t, map[string]string{"data.txt": "new"})),
	}
	if err := os.WriteFile(filepath.Join(env.appDir, "data.txt"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgFile := filepath.Join(t.TempDir(), "ezupdate.yaml")
	content := fmt.Sprintf(`owner: acme
repo: rocket
asset: %s
current_version: %s
app_dir: %s
temp_root: %s
api_url: %s
settle_delay: 1ms
github_token: ghp_secret
log_level: error
`, asset, current, env.appDir, env.tempRoot, env.server.URL)
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	setGlobals(t, cfgFile, format)
	return env
}

func setGlobals(t *testing.T, cfgFile, format string) {
	t.Helper()
	configPath, outputFormat, logFile, verbose, quiet = cfgFile, format, "", false, false
	t.Cleanup(func() {
		configPath, outputFormat, logFile, verbose, quiet = "", "text", "", false, false
	})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRunCheck_UpdateAvailable(t *testing.T) {
	setup(t, "1.0.0", "v1.1.0", "app.zip", "json")

	var out bytes.Buffer
	if err := runCheck(t.Context(), &out); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}

	var got output.CheckResult
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out.String())
	}
	if !got.UpdateAvailable || got.LatestVersion != "v1.1.0" || got.CurrentVersion != "1.0.0" {
		t.Errorf("result = %+v", got)
	}
	if got.Asset == nil || got.Asset.Name != "app.zip" || got.Asset.Size == 0 {
		t.Errorf("asset = %+v", got.Asset)
	}
	if got.State != string(types.StateUpdateAvailable) {
		t.Errorf("state = %s", got.State)
	}
}

func TestRunCheck_RepoNotFound(t *testing.T) {
	env := setup(t, "1.0.0", "v1.1.0", "app.zip", "text")
	env.server.notFound = true

	var out bytes.Buffer
	err := runCheck(t.Context(), &out)
	if !errors.Is(err, update.ErrRepoNotFound) {
		t.Fatalf("runCheck() error = %v, want ErrRepoNotFound", err)
	}
	if !strings.Contains(out.String(), "Repository not found") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunUpdate_Installs(t *testing.T) {
	env := setup(t, "1.0.0", "v1.1.0", "app.zip", "text")

	var out bytes.Buffer
	err := runUpdate(t.Context(), updateOptions{assumeYes: true, out: &out})
	if err != nil {
		t.Fatalf("runUpdate() error = %v\n%s", err, out.String())
	}

	if got := readFile(t, filepath.Join(env.appDir, "data.txt")); got != "new" {
		t.Errorf("data.txt = %q, want new", got)
	}
	if got := readFile(t, filepath.Join(env.appDir, "data.txt.EZold")); got != "old" {
		t.Errorf("backup = %q, want old", got)
	}
	for _, want := range []string{"Downloading update...", "Installing... 100%", "Update installed!", "to v1.1.0"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if n := env.server.downloads.Load(); n != 1 {
		t.Errorf("downloads = %d, want 1", n)
	}
}

func TestRunUpdate_StructuredOutput(t *testing.T) {
	setup(t, "1.0.0", "v1.1.0", "app.zip", "json")

	var out bytes.Buffer
	if err := runUpdate(t.Context(), updateOptions{assumeYes: true, out: &out}); err != nil {
		t.Fatalf("runUpdate() error = %v", err)
	}

	var st update.Status
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out.String())
	}
	if st.State != types.StateInstalled || st.ShortState != types.ShortStateInstalled || st.Progress != 100 {
		t.Errorf("status = %+v", st)
	}
}

func TestRunUpdate_UpToDate(t *testing.T) {
	env := setup(t, "1.1.0", "v1.1.0", "app.zip", "text")

	var out bytes.Buffer
	if err := runUpdate(t.Context(), updateOptions{assumeYes: true, out: &out}); err != nil {
		t.Fatalf("runUpdate() error = %v", err)
	}
	if !strings.Contains(out.String(), "is up to date") {
		t.Errorf("output = %q", out.String())
	}
	if n := env.server.downloads.Load(); n != 0 {
		t.Errorf("downloads = %d, want 0", n)
	}
}

func TestRunUpdate_Force(t *testing.T) {
	env := setup(t, "1.1.0", "v1.1.0", "app.zip", "text")

	var out bytes.Buffer
	if err := runUpdate(t.Context(), updateOptions{assumeYes: true, force: true, out: &out}); err != nil {
		t.Fatalf("runUpdate() error = %v", err)
	}
	if got := readFile(t, filepath.Join(env.appDir, "data.txt")); got != "new" {
		t.Errorf("data.txt = %q, want new", got)
	}
}

func TestRunUpdate_Confirmation(t *testing.T) {
	tests := []struct {
		name        string
		interactive bool
		input       string
		wantErr     error
		wantOut     string
	}{
		{name: "no terminal", interactive: false, wantErr: errNeedsConfirmation},
		{name: "declined", interactive: true, input: "n\n", wantOut: "Update skipped."},
		{name: "closed input", interactive: true, input: "", wantOut: "Aborted."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t, "1.0.0", "v1.1.0", "app.zip", "text")

			var out bytes.Buffer
			err := runUpdate(t.Context(), updateOptions{
				interactive: tt.interactive,
				in:          strings.NewReader(tt.input),
				out:         &out,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("runUpdate() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out.String())
			}
			if got := readFile(t, filepath.Join(env.appDir, "data.txt")); got != "old" {
				t.Errorf("data.txt = %q, want old", got)
			}
			if n := env.server.downloads.Load(); n != 0 {
				t.Errorf("downloads = %d, want 0", n)
			}
		})
	}
}

func TestRunUpdate_ConfirmedInteractively(t *testing.T) {
	env := setup(t, "1.0.0", "v1.1.0", "app.zip", "text")

	var out bytes.Buffer
	err := runUpdate(t.Context(), updateOptions{interactive: true, in: strings.NewReader("y\n"), out: &out})
	if err != nil {
		t.Fatalf("runUpdate() error = %v", err)
	}
	if !strings.Contains(out.String(), "1.0.0 -> v1.1.0 (Rocket v1.1.0)") {
		t.Errorf("prompt missing version line:\n%s", out.String())
	}
	if got := readFile(t, filepath.Join(env.appDir, "data.txt")); got != "new" {
		t.Errorf("data.txt = %q, want new", got)
	}
}

func TestRunUpdate_AssetMissing(t *testing.T) {
	setup(t, "1.0.0", "v1.1.0", "other.zip", "text")

	var out bytes.Buffer
	err := runUpdate(t.Context(), updateOptions{assumeYes: true, out: &out})
	if !errors.Is(err, update.ErrAssetNotFound) {
		t.Fatalf("runUpdate() error = %v, want ErrAssetNotFound", err)
	}
}

func TestRunSweep(t *testing.T) {
	env := setup(t, "1.0.0", "v1.1.0", "app.zip", "text")
	if err := os.MkdirAll(update.StagingDir(env.tempRoot, 0), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.appDir, "data.txt.EZold"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runSweep(&out); err != nil {
		t.Fatalf("runSweep() error = %v", err)
	}
	for _, want := range []string{"Removed 1 staging directory", "Removed 1 backup:", "data.txt.EZold"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if _, err := os.Stat(update.StagingDir(env.tempRoot, 0)); !os.IsNotExist(err) {
		t.Error("staging dir should be removed")
	}

	out.Reset()
	if err := runSweep(&out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "Nothing to clean up.\n" {
		t.Errorf("second sweep output = %q", out.String())
	}
}

func TestRunStatus(t *testing.T) {
	env := setup(t, "1.0.0", "v1.1.0", "app.zip", "yaml")
	if err := os.WriteFile(filepath.Join(env.appDir, "keep.EZold"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runStatus(&out); err != nil {
		t.Fatalf("runStatus() error = %v", err)
	}

	text := out.String()
	for _, want := range []string{"owner: acme", "state: idle", "program_version: 1.0.0", "asset_name: app.zip"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ghp_secret") {
		t.Error("status output leaked the token")
	}
	if _, err := os.Stat(filepath.Join(env.appDir, "keep.EZold")); err != nil {
		t.Error("status must not sweep backups")
	}
	if n := env.server.downloads.Load(); n != 0 {
		t.Errorf("downloads = %d, want 0", n)
	}
}

func TestRunVersion(t *testing.T) {
	setGlobals(t, "", "json")
	appVersion, appCommit = "1.2.3", "abc123"
	t.Cleanup(func() { appVersion, appCommit = "dev", "none" })

	var out bytes.Buffer
	if err := runVersion(&out); err != nil {
		t.Fatal(err)
	}
	var got versionInfo
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Version != "1.2.3" || got.Commit != "abc123" || got.GoVersion == "" {
		t.Errorf("version = %+v", got)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	setGlobals(t, filepath.Join(t.TempDir(), "missing.yaml"), "text")
	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig() expected error")
	}
}

func TestBadOutputFormat(t *testing.T) {
	setup(t, "1.0.0", "v1.1.0", "app.zip", "xml")
	if err := runCheck(t.Context(), &bytes.Buffer{}); err == nil {
		t.Error("runCheck() expected format error")
	}
}

func TestSessionOptions(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "from-env")
	appVersion = "2.0.0"
	t.Cleanup(func() { appVersion = "dev" })

	cfg := config.Default()
	cfg.Owner, cfg.Repo = "acme", "rocket"

	opts := sessionOptions(cfg)
	if opts.CurrentVersion != "2.0.0" {
		t.Errorf("CurrentVersion = %q, want build version", opts.CurrentVersion)
	}
	if opts.StallWindow != config.DefaultStallWindow || opts.MaxRetries != config.DefaultMaxRetries {
		t.Errorf("retry options = %s %d", opts.StallWindow, opts.MaxRetries)
	}
	if opts.Source == nil || opts.Downloader == nil || opts.Logger == nil {
		t.Error("source, downloader and logger must be set")
	}

	cfg.CurrentVersion = "1.0.0"
	if got := sessionOptions(cfg).CurrentVersion; got != "1.0.0" {
		t.Errorf("CurrentVersion = %q, want config value", got)
	}
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	p := newProgressPrinter(&out)

	for _, pct := range []int{0, 3, 9, 10, 15, 20} {
		p.print(update.Event{Kind: update.EventDownloadProgress, Percent: pct, BytesDone: int64(pct), BytesTotal: 100})
	}
	p.print(update.Event{Kind: update.EventStateChanged, State: types.StateRetrying, Message: "Retrying download... 1/4"})
	p.print(update.Event{Kind: update.EventRetry, Attempt: 1, MaxRetries: 4})
	p.print(update.Event{Kind: update.EventDownloadProgress, Percent: 0, BytesDone: 0, BytesTotal: 100})
	p.print(update.Event{Kind: update.EventDownloadProgress, Percent: 50, BytesDone: 50, BytesTotal: -1})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"Downloading...   0% (0 B / 100 B)",
		"Downloading...  10% (10 B / 100 B)",
		"Downloading...  20% (20 B / 100 B)",
		"Download stalled, retry 1/4",
		"Downloading...   0% (0 B / 100 B)",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("lines =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}

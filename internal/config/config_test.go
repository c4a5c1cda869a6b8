package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.MaxRetries != 4 || c.StallWindow.Std() != 5*time.Second || c.SettleDelay.Std() != time.Second {
		t.Errorf("retry defaults = %d %s %s", c.MaxRetries, c.StallWindow.Std(), c.SettleDelay.Std())
	}
	if c.BackupSuffix != ".EZold" || c.APIURL != DefaultAPIURL || c.LogLevel != "info" || c.LogFile != "console" {
		t.Errorf("defaults = %+v", c)
	}
	if c.TempRoot == "" {
		t.Error("TempRoot should default to the system temp dir")
	}
}

func TestDurationText(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	b, err := d.MarshalText()
	if err != nil || string(b) != "1.5s" {
		t.Errorf("MarshalText() = %s, %v", b, err)
	}

	var got Duration
	if err := got.UnmarshalText([]byte(" 2m ")); err != nil || got.Std() != 2*time.Minute {
		t.Errorf("UnmarshalText(2m) = %s, %v", got.Std(), err)
	}
	if err := got.UnmarshalText([]byte("3")); err != nil || got.Std() != 3*time.Second {
		t.Errorf("UnmarshalText(3) = %s, %v", got.Std(), err)
	}
	if err := got.UnmarshalText([]byte("later")); err == nil {
		t.Error("expected error")
	}
}

func TestRedacted(t *testing.T) {
	c := validConfig()
	c.GitHubToken = "ghp_secret"
	r := c.Redacted()
	if r.GitHubToken == "ghp_secret" {
		t.Error("token not redacted")
	}
	if c.GitHubToken != "ghp_secret" {
		t.Error("Redacted modified the original")
	}
	if validConfig().Redacted().GitHubToken != "" {
		t.Error("empty token should stay empty")
	}
}

func TestFind(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	t.Setenv(EnvConfig, "")

	if _, err := Find(""); err != ErrNotFound {
		t.Fatalf("Find() error = %v, want ErrNotFound", err)
	}

	dotDir := filepath.Join(home, ".ezupdate")
	writeFile(t, filepath.Join(dotDir, "ezupdate.toml"), `owner = "a"`)
	if got, err := Find(""); err != nil || got != filepath.Join(dotDir, "ezupdate.toml") {
		t.Errorf("Find() = %s, %v", got, err)
	}

	xdgPath := filepath.Join(home, "xdg", "ezupdate", "ezupdate.yaml")
	writeFile(t, xdgPath, "owner: a")
	if got, err := Find(""); err != nil || got != xdgPath {
		t.Errorf("Find() = %s, %v, want XDG location first", got, err)
	}

	envPath := filepath.Join(t.TempDir(), "custom.json")
	writeFile(t, envPath, `{"owner": "a"}`)
	t.Setenv(EnvConfig, envPath)
	if got, err := Find(""); err != nil || got != envPath {
		t.Errorf("Find() = %s, %v, want %s env path", got, err, EnvConfig)
	}

	if got, err := Find(dotDir + "/ezupdate.toml"); err != nil || got != dotDir+"/ezupdate.toml" {
		t.Errorf("Find(explicit) = %s, %v", got, err)
	}
	if _, err := Find(filepath.Join(home, "missing.yaml")); err == nil {
		t.Error("Find(missing explicit) expected error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ezupdate.yaml")
	writeFile(t, path, "owner: acme\nrepo: rocket\nmax_retries: 2\n")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Owner != "acme" || c.MaxRetries != 2 || c.BackupSuffix != DefaultBackupSuffix {
		t.Errorf("Load() = %+v", c)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	writeFile(t, invalid, "owner: acme\n")
	if _, err := Load(invalid); err == nil {
		t.Error("Load() should validate")
	}

	unknown := filepath.Join(dir, "ezupdate")
	writeFile(t, unknown, "just words")
	if _, err := Load(unknown); err == nil {
		t.Error("Load() should reject undetectable formats")
	}

	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

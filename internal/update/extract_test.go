package update

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeZip creates a zip archive at path holding files (slash path -> content).
// Names ending in "/" become directory entries.
func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close archive: %v", err)
	}
}

func TestExtractZip(t *testing.T) {
	tmpDir := t.TempDir()
	archive := filepath.Join(tmpDir, "app.zip")
	writeZip(t, archive, map[string]string{
		"app.exe":         "binary",
		"lib/":            "",
		"lib/helper.dll":  "helper",
		"docs/readme.txt": "read me",
	})

	dest := filepath.Join(tmpDir, "out")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatalf("Failed to create dest: %v", err)
	}

	if err := ExtractZip(archive, dest); err != nil {
		t.Fatalf("ExtractZip() error = %v", err)
	}

	want := map[string]string{
		"app.exe":         "binary",
		"docs":            "<dir>",
		"docs/readme.txt": "read me",
		"lib":             "<dir>",
		"lib/helper.dll":  "helper",
	}
	if diff := cmp.Diff(want, snapshotTree(t, dest)); diff != "" {
		t.Errorf("extracted tree mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	tmpDir := t.TempDir()
	archive := filepath.Join(tmpDir, "evil.zip")
	writeZip(t, archive, map[string]string{"../escape.txt": "gotcha"})

	dest := filepath.Join(tmpDir, "out")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatalf("Failed to create dest: %v", err)
	}

	if err := ExtractZip(archive, dest); err == nil {
		t.Fatal("ExtractZip() should reject entries escaping the destination")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("traversal entry was written outside the destination")
	}
}

func TestExtractZip_NotAnArchive(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "app.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := ExtractZip(path, tmpDir); err == nil {
		t.Error("ExtractZip() should fail on a corrupt archive")
	}
}

func TestAssetIsArchive(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"app.zip", true},
		{"APP.ZIP", true},
		{"app.exe", false},
		{"app", false},
		{"app.tar.gz", false},
	}
	for _, tt := range tests {
		if got := (Asset{Name: tt.name}).IsArchive(); got != tt.want {
			t.Errorf("Asset{%q}.IsArchive() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLockDryRun(t *testing.T) {
	dir := t.TempDir()
	cfg := setupIntegrityDir(t, dir)

	report, err := Lock(cfg, true)
	if err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	if report.Written {
		t.Fatal("report.Written = true, want false in dry-run")
	}
	if len(report.Files) != 2 {
		t.Fatalf("len(report.Files) = %d, want 2", len(report.Files))
	}
	if report.Files[0].Path != "config.yaml" || report.Files[1].Path != "channels/dev.yaml" {
		t.Fatalf("unexpected scope: %+v", report.Files)
	}
	if _, err := os.Stat(filepath.Join(dir, ChecksumFileName)); !os.IsNotExist(err) {
		t.Fatal(".checksums should not be written in dry-run mode")
	}
}

func TestLockWritesManifest(t *testing.T) {
	dir := t.TempDir()
	cfg := setupIntegrityDir(t, dir)

	report, err := Lock(cfg, false)
	if err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	if !report.Written {
		t.Fatal("report.Written = false, want true")
	}

	manifest, err := LoadChecksums(dir)
	if err != nil {
		t.Fatalf("LoadChecksums() failed: %v", err)
	}
	want, _ := ComputeBlake3Hash(filepath.Join(dir, "channels", "dev.yaml"))
	if manifest.Hashes["channels/dev.yaml"] != want {
		t.Fatalf("channel hash = %q, want %q", manifest.Hashes["channels/dev.yaml"], want)
	}
}

func TestLoadChecksumsMissing(t *testing.T) {
	_, err := LoadChecksums(t.TempDir())
	if !errors.Is(err, ErrNoManifest) {
		t.Fatalf("LoadChecksums() error = %v, want ErrNoManifest", err)
	}
}

func TestVerifyFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.yaml")
	writeTestFile(t, path, "a: 1\n")

	hash, err := ComputeBlake3Hash(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyFileHash(path, hash); err != nil {
		t.Fatalf("VerifyFileHash() unexpected error: %v", err)
	}
	if err := VerifyFileHash(path, "deadbeef"); err == nil {
		t.Fatal("VerifyFileHash() expected mismatch error")
	}
}

func TestManifestKeyOutsideConfigDir(t *testing.T) {
	if got := manifestKey("/etc/slackagent", "/srv/channels/a.yaml"); got != "/srv/channels/a.yaml" {
		t.Fatalf("manifestKey() = %q, want absolute path", got)
	}
	if got := manifestKey("/etc/slackagent", "/etc/slackagent/channels/a.yaml"); got != "channels/a.yaml" {
		t.Fatalf("manifestKey() = %q, want relative path", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerifyIntegrityAllValid(t *testing.T) {
	dir := t.TempDir()
	cfg := setupIntegrityDir(t, dir)
	if _, err := Lock(cfg, false); err != nil {
		t.Fatal(err)
	}

	result, err := VerifyIntegrity(cfg)
	if err != nil {
		t.Fatalf("VerifyIntegrity() error: %v", err)
	}
	if !result.Passed || len(result.Errors) != 0 || len(result.Warnings) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestVerifyIntegrityServiceFileMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := setupIntegrityDir(t, dir)
	if _, err := Lock(cfg, false); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "slack:\n  bot_token: tampered\n")

	result, err := VerifyIntegrity(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.Passed {
		t.Fatal("expected failure on service file mismatch")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "config.yaml") {
		t.Fatalf("errors = %v", result.Errors)
	}
}

func TestVerifyIntegrityChannelMismatchWarns(t *testing.T) {
	dir := t.TempDir()
	cfg := setupIntegrityDir(t, dir)
	if _, err := Lock(cfg, false); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(dir, "channels", "dev.yaml"), "channel_id: C1\nclone_path: /tmp/other\n")
	writeTestFile(t, filepath.Join(dir, "channels", "new.yaml"), "channel_id: C2\nclone_path: /tmp/new\n")

	result, err := VerifyIntegrity(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Passed {
		t.Fatalf("channel drift should not fail: %v", result.Errors)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", result.Warnings)
	}
}

func TestVerifyIntegrityMissingFileWarns(t *testing.T) {
	dir := t.TempDir()
	cfg := setupIntegrityDir(t, dir)
	if _, err := Lock(cfg, false); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "channels", "dev.yaml")); err != nil {
		t.Fatal(err)
	}

	result, err := VerifyIntegrity(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "missing from disk") {
		t.Fatalf("warnings = %v", result.Warnings)
	}
}

func TestVerifyIntegrityNoManifest(t *testing.T) {
	dir := t.TempDir()
	cfg := setupIntegrityDir(t, dir)

	result, err := VerifyIntegrity(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Passed {
		t.Fatal("missing manifest should only warn")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected warning about missing manifest, got %v", result.Warnings)
	}
}

func setupIntegrityDir(t *testing.T, dir string) *Config {
	t.Helper()
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "slack:\n  bot_token: xoxb-test\nchannels_dir: ./channels\n")
	writeTestFile(t, filepath.Join(dir, "channels", "dev.yaml"), "channel_id: C1\nclone_path: /tmp/repo\n")

	cfg := Defaults()
	cfg.SourcePath = filepath.Join(dir, "config.yaml")
	cfg.ChannelsDir = filepath.Join(dir, "channels")
	return cfg
}

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumFileName is the manifest written next to config.yaml by `config lock`.
const ChecksumFileName = ".checksums"

// ErrNoManifest is returned when a config directory has no checksum manifest.
var ErrNoManifest = errors.New("checksums file not found (run 'slackagent config lock')")

// ChecksumManifest records the expected BLAKE3 hash of each locked file.
// Keys are paths relative to the config directory.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// LockedFile captures checksum generation outcome for one file.
type LockedFile struct {
	Path string
	Hash string
}

// LockReport captures checksum generation details for a config directory.
type LockReport struct {
	ConfigDir    string
	ChecksumPath string
	Written      bool
	Files        []LockedFile
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyFileHash verifies a file against an expected BLAKE3 hash.
func VerifyFileHash(filePath, expectedHash string) error {
	actualHash, err := ComputeBlake3Hash(filePath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}

	if actualHash != expectedHash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s",
			filepath.Base(filePath), expectedHash, actualHash)
	}
	return nil
}

// ScopeFiles lists the files covered by the manifest: the service file and
// every channel file, as paths relative to the config directory.
func ScopeFiles(cfg *Config) ([]string, error) {
	configDir := filepath.Dir(cfg.SourcePath)
	files := []string{filepath.Base(cfg.SourcePath)}

	channelFiles, err := channelFilePaths(cfg.ChannelsDir)
	if err != nil {
		return nil, err
	}
	for _, p := range channelFiles {
		files = append(files, manifestKey(configDir, p))
	}
	return files, nil
}

// Lock computes hashes for all scope files and writes the manifest.
// When dryRun is true the report is returned without writing anything.
func Lock(cfg *Config, dryRun bool) (*LockReport, error) {
	configDir := filepath.Dir(cfg.SourcePath)
	scope, err := ScopeFiles(cfg)
	if err != nil {
		return nil, err
	}

	manifest := ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      make(map[string]string, len(scope)),
	}
	report := &LockReport{
		ConfigDir:    configDir,
		ChecksumPath: filepath.Join(configDir, ChecksumFileName),
		Files:        make([]LockedFile, 0, len(scope)),
	}

	for _, key := range scope {
		hash, err := ComputeBlake3Hash(resolveManifestKey(configDir, key))
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", key, err)
		}
		manifest.Hashes[key] = hash
		report.Files = append(report.Files, LockedFile{Path: key, Hash: hash})
	}

	if dryRun {
		return report, nil
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checksums: %w", err)
	}
	if err := os.WriteFile(report.ChecksumPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}
	report.Written = true
	return report, nil
}

// LoadChecksums reads the manifest from a config directory.
func LoadChecksums(configDir string) (*ChecksumManifest, error) {
	data, err := os.ReadFile(filepath.Join(configDir, ChecksumFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse checksums: %w", err)
	}
	if manifest.Version != 1 {
		return nil, fmt.Errorf("unsupported checksums version: %d", manifest.Version)
	}
	return &manifest, nil
}

// verifyConfigHashes hard-fails Load when a manifest exists and the service
// file (which carries tokens) does not match it. Without a manifest nothing is checked.
func verifyConfigHashes(cfg *Config) error {
	configDir := filepath.Dir(cfg.SourcePath)
	manifest, err := LoadChecksums(configDir)
	if errors.Is(err, ErrNoManifest) {
		return nil
	}
	if err != nil {
		return err
	}

	key := filepath.Base(cfg.SourcePath)
	expected, ok := manifest.Hashes[key]
	if !ok {
		return fmt.Errorf("%s has no hash in checksums (run 'slackagent config lock')", key)
	}
	if err := VerifyFileHash(cfg.SourcePath, expected); err != nil {
		return fmt.Errorf("config verification failed: %w\n"+
			"If you edited this file intentionally, run: slackagent config lock", err)
	}
	return nil
}

func channelFilePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read channels dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isYAMLFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func isYAMLFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func manifestKey(configDir, path string) string {
	rel, err := filepath.Rel(configDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

func resolveManifestKey(configDir, key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(configDir, filepath.FromSlash(key))
}

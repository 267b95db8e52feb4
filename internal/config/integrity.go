package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// IntegrityResult collects the outcome of VerifyIntegrity.
type IntegrityResult struct {
	Passed   bool
	Errors   []string
	Warnings []string
}

// VerifyIntegrity checks the service file and channel files against the manifest.
// The service file carries secrets, so a mismatch there is an error. Channel files
// are edited and hot-reloaded in place, so their mismatches are warnings.
func VerifyIntegrity(cfg *Config) (*IntegrityResult, error) {
	result := &IntegrityResult{Passed: true}
	configDir := filepath.Dir(cfg.SourcePath)
	serviceKey := filepath.Base(cfg.SourcePath)

	manifest, err := LoadChecksums(configDir)
	if errors.Is(err, ErrNoManifest) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no %s manifest in %s; run 'slackagent config lock' to enable integrity verification",
				ChecksumFileName, configDir))
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	scope, err := ScopeFiles(cfg)
	if err != nil {
		return nil, err
	}

	report := func(key, msg string) {
		if key == serviceKey {
			result.Passed = false
			result.Errors = append(result.Errors, msg)
			return
		}
		result.Warnings = append(result.Warnings, msg)
	}

	seen := make(map[string]bool, len(scope))
	for _, key := range scope {
		seen[key] = true
		expected, ok := manifest.Hashes[key]
		if !ok {
			report(key, fmt.Sprintf("file %s not in %s manifest", key, ChecksumFileName))
			continue
		}
		actual, err := ComputeBlake3Hash(resolveManifestKey(configDir, key))
		if err != nil {
			report(key, fmt.Sprintf("failed to hash %s: %v", key, err))
			continue
		}
		if actual != expected {
			report(key, fmt.Sprintf("hash mismatch for %s (expected %s, got %s)", key, expected, actual))
		}
	}

	for key := range manifest.Hashes {
		if !seen[key] {
			report(key, fmt.Sprintf("file %s is in %s but missing from disk", key, ChecksumFileName))
		}
	}

	return result, nil
}

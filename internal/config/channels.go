package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mattjoyce/slackagent/internal/log"
	"gopkg.in/yaml.v3"
)

// LoadChannelFile reads and normalizes one channel file.
func LoadChannelFile(path string) (ChannelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ChannelConfig{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var ch ChannelConfig
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &ch); err != nil {
		return ChannelConfig{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if err := ch.Normalize(); err != nil {
		return ChannelConfig{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return ch, nil
}

// LoadChannels reads every *.yaml / *.yml file in dir. A file that fails to
// parse or validate is reported in errs and skipped; its channel stays unconfigured.
// A duplicate channel_id keeps the first file in lexical order.
func LoadChannels(dir string) (channels map[string]ChannelConfig, errs []error) {
	channels = make(map[string]ChannelConfig)

	paths, err := channelFilePaths(dir)
	if err != nil {
		return channels, []error{err}
	}

	for _, p := range paths {
		ch, err := LoadChannelFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := channels[ch.ChannelID]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate channel_id %q", filepath.Base(p), ch.ChannelID))
			continue
		}
		channels[ch.ChannelID] = ch
	}
	return channels, errs
}

// ChannelStore is the concurrency-safe lookup of channel configuration.
// Lookups always reflect the most recent successful Reload.
type ChannelStore struct {
	dir string

	mu       sync.RWMutex
	channels map[string]ChannelConfig
}

// NewChannelStore creates a store for dir. Call Reload to populate it.
func NewChannelStore(dir string) *ChannelStore {
	return &ChannelStore{dir: dir, channels: make(map[string]ChannelConfig)}
}

// NewStaticChannelStore creates a store pre-populated with fixed channels.
// Channels that fail Normalize are skipped.
func NewStaticChannelStore(channels ...ChannelConfig) *ChannelStore {
	s := NewChannelStore("")
	for _, ch := range channels {
		if err := ch.Normalize(); err != nil {
			continue
		}
		s.channels[ch.ChannelID] = ch
	}
	return s
}

// Dir returns the directory the store reloads from.
func (s *ChannelStore) Dir() string {
	return s.dir
}

// Get returns the configuration for a channel.
func (s *ChannelStore) Get(channelID string) (ChannelConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[channelID]
	if ok {
		ch.SetupCommands = append([]string(nil), ch.SetupCommands...)
	}
	return ch, ok
}

// All returns every configured channel sorted by channel id.
func (s *ChannelStore) All() []ChannelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChannelConfig, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// Replace swaps the full channel set.
func (s *ChannelStore) Replace(channels map[string]ChannelConfig) {
	s.mu.Lock()
	s.channels = channels
	s.mu.Unlock()
}

// Reload re-reads the channels directory. Invalid files are logged and skipped.
// It returns the number of channels loaded.
func (s *ChannelStore) Reload() int {
	logger := log.WithComponent("config")
	channels, errs := LoadChannels(s.dir)
	for _, err := range errs {
		logger.Warn("channel config rejected", "error", err)
	}
	s.Replace(channels)
	logger.Info("channel configs loaded", "dir", s.dir, "channels", len(channels), "rejected", len(errs))
	return len(channels)
}

// Package profile loads agent profiles that shape a code-generation run.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultName is the profile file used when a named profile is missing.
	DefaultName  = "default"
	cacheEntries = 64
)

// ErrInvalidName rejects names that would escape the profiles directory.
var ErrInvalidName = errors.New("invalid profile name")

// Profile is an agent persona referenced from a channel's profile field.
type Profile struct {
	Name                string   `yaml:"name" json:"name"`
	Description         string   `yaml:"description,omitempty" json:"description,omitempty"`
	SystemPrompt        string   `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	Capabilities        []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Tools               []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	MaxExecutionMinutes int      `yaml:"max_execution_minutes,omitempty" json:"max_execution_minutes,omitempty"`
}

// MaxExecution returns the profile's time cap, or zero when unset.
func (p Profile) MaxExecution() time.Duration {
	if p.MaxExecutionMinutes <= 0 {
		return 0
	}
	return time.Duration(p.MaxExecutionMinutes) * time.Minute
}

// Builtin is used when neither the named profile nor default.yaml exist.
func Builtin() Profile {
	return Profile{
		Name:                DefaultName,
		Description:         "Default agent profile",
		MaxExecutionMinutes: 60,
	}
}

// Store reads profiles from a directory and caches parsed results.
type Store struct {
	dir   string
	cache *lru.Cache[string, Profile]
}

// NewStore creates a store over dir. An empty dir serves only the builtin profile.
func NewStore(dir string) (*Store, error) {
	cache, err := lru.New[string, Profile](cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}
	return &Store{dir: dir, cache: cache}, nil
}

// Load resolves name to a profile: <dir>/<name>.yaml, then <dir>/default.yaml,
// then the builtin profile. A file that exists but fails to parse is an error.
func (s *Store) Load(name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return Profile{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if p, ok := s.cache.Get(name); ok {
		return p, nil
	}

	p, err := s.resolve(name)
	if err != nil {
		return Profile{}, err
	}
	s.cache.Add(name, p)
	return p, nil
}

// Invalidate drops all cached profiles so the next Load re-reads the files.
func (s *Store) Invalidate() {
	s.cache.Purge()
}

// List returns the names of profile files in the directory.
func (s *Store) List() ([]string, error) {
	if s.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	return names, nil
}

func (s *Store) resolve(name string) (Profile, error) {
	if s.dir == "" {
		return Builtin(), nil
	}
	for _, candidate := range []string{name, DefaultName} {
		p, err := readProfile(filepath.Join(s.dir, candidate+".yaml"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Profile{}, err
		}
		if p.Name == "" {
			p.Name = candidate
		}
		return p, nil
	}
	return Builtin(), nil
}

func readProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", filepath.Base(path), err)
	}
	if p.MaxExecutionMinutes < 0 {
		return Profile{}, fmt.Errorf("profile %s: max_execution_minutes must not be negative", filepath.Base(path))
	}
	return p, nil
}

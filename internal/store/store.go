// Package store owns the persisted gate configuration: security policy,
// allowlist entries and safe bins. Every mutating call persists
// synchronously before returning, so a crash immediately after a successful
// call never loses the mutation. Mutations on one Store are serialized by a
// mutex; concurrent readers see either the old or the new configuration,
// never a partial write.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".cmdgate"
	DefaultConfigFile = "config.yaml"
)

// WarnFunc receives recoverable-problem messages (for example a corrupt
// config file replaced by factory defaults). The host decides where they
// go.
type WarnFunc func(format string, args ...any)

type Store struct {
	mu    sync.RWMutex
	path  string
	cfg   Config
	warnf WarnFunc
}

type Option func(*Store)

// WithWarnFunc routes warnings to the host's logging channel instead of
// stderr.
func WithWarnFunc(f WarnFunc) Option {
	return func(s *Store) { s.warnf = f }
}

// DefaultPath returns ~/.cmdgate/config.yaml, creating the directory when
// missing.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Open loads the configuration at path, falling back to factory defaults
// when the file is missing or unreadable. A corrupt backing store is
// replaced by defaults with a warning; Open only fails when the path itself
// is unusable for later persistence.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path: path,
		warnf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "cmdgate: "+format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.cfg = DefaultConfig()
	case err != nil:
		s.warnf("cannot read config %s, using defaults: %v", path, err)
		s.cfg = DefaultConfig()
	default:
		var cfg Config
		if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
			s.warnf("corrupt config %s, using defaults: %v", path, uerr)
			s.cfg = DefaultConfig()
		} else {
			cfg.Defaults = cfg.Defaults.normalize()
			cfg.SafeBins = dedupe(cfg.SafeBins)
			s.cfg = cfg
		}
	}
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Snapshot returns a deep copy of the current configuration for one
// decision pass.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConfig(s.cfg)
}

// AddAllowlistEntry creates an entry with an engine-assigned id and
// persists it.
func (s *Store) AddAllowlistEntry(pattern, description string) (AllowlistEntry, error) {
	if pattern == "" {
		return AllowlistEntry{}, fmt.Errorf("allowlist pattern must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := AllowlistEntry{
		ID:          uuid.NewString(),
		Pattern:     pattern,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	s.cfg.Allowlist = append(s.cfg.Allowlist, entry)
	if err := s.persistLocked(); err != nil {
		s.cfg.Allowlist = s.cfg.Allowlist[:len(s.cfg.Allowlist)-1]
		return AllowlistEntry{}, err
	}
	return entry, nil
}

// GetAllowlistEntry returns a copy of the entry, or nil for an unknown id.
func (s *Store) GetAllowlistEntry(id string) *AllowlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.cfg.Allowlist {
		if entry.ID == id {
			e := entry
			return &e
		}
	}
	return nil
}

// UpdateAllowlistEntry applies upd to the entry with the given id. It
// returns the updated entry, or nil when the id is unknown; id and
// CreatedAt are immutable.
func (s *Store) UpdateAllowlistEntry(id string, upd EntryUpdate) (*AllowlistEntry, error) {
	if upd.Pattern != nil && *upd.Pattern == "" {
		return nil, fmt.Errorf("allowlist pattern must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cfg.Allowlist {
		if s.cfg.Allowlist[i].ID != id {
			continue
		}
		prev := s.cfg.Allowlist[i]
		if upd.Pattern != nil {
			s.cfg.Allowlist[i].Pattern = *upd.Pattern
		}
		if upd.Description != nil {
			s.cfg.Allowlist[i].Description = *upd.Description
		}
		if err := s.persistLocked(); err != nil {
			s.cfg.Allowlist[i] = prev
			return nil, err
		}
		e := s.cfg.Allowlist[i]
		return &e, nil
	}
	return nil, nil
}

// RemoveAllowlistEntry deletes the entry and reports whether it existed.
func (s *Store) RemoveAllowlistEntry(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cfg.Allowlist {
		if s.cfg.Allowlist[i].ID != id {
			continue
		}
		removed := s.cfg.Allowlist[i]
		s.cfg.Allowlist = append(s.cfg.Allowlist[:i], s.cfg.Allowlist[i+1:]...)
		if err := s.persistLocked(); err != nil {
			s.cfg.Allowlist = append(s.cfg.Allowlist[:i], append([]AllowlistEntry{removed}, s.cfg.Allowlist[i:]...)...)
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// ListAllowlist returns a copy of all entries in insertion order.
func (s *Store) ListAllowlist() []AllowlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AllowlistEntry, len(s.cfg.Allowlist))
	copy(out, s.cfg.Allowlist)
	return out
}

// AddSafeBin adds name to the safe-bin set. Adding an existing name is a
// no-op; the bool reports whether the set changed.
func (s *Store) AddSafeBin(name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("safe bin name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bin := range s.cfg.SafeBins {
		if bin == name {
			return false, nil
		}
	}
	s.cfg.SafeBins = append(s.cfg.SafeBins, name)
	if err := s.persistLocked(); err != nil {
		s.cfg.SafeBins = s.cfg.SafeBins[:len(s.cfg.SafeBins)-1]
		return false, err
	}
	return true, nil
}

// RemoveSafeBin removes name from the set; removing an absent name is a
// silent no-op.
func (s *Store) RemoveSafeBin(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, bin := range s.cfg.SafeBins {
		if bin != name {
			continue
		}
		s.cfg.SafeBins = append(s.cfg.SafeBins[:i], s.cfg.SafeBins[i+1:]...)
		if err := s.persistLocked(); err != nil {
			s.cfg.SafeBins = append(s.cfg.SafeBins[:i], append([]string{name}, s.cfg.SafeBins[i:]...)...)
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// ListSafeBins returns the safe-bin set, sorted.
func (s *Store) ListSafeBins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.cfg.SafeBins))
	copy(out, s.cfg.SafeBins)
	sort.Strings(out)
	return out
}

// GetPolicy returns the current policy.
func (s *Store) GetPolicy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Defaults
}

// SetPolicy replaces the policy wholesale, coercing unknown enum values to
// the most restrictive choice.
func (s *Store) SetPolicy(p Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg.Defaults
	s.cfg.Defaults = p.normalize()
	if err := s.persistLocked(); err != nil {
		s.cfg.Defaults = prev
		return err
	}
	return nil
}

// ExportConfig returns a deep copy of the full configuration for backup or
// seeding.
func (s *Store) ExportConfig() Config {
	return s.Snapshot()
}

// ImportConfig merges a partial configuration and persists the result. A
// zero-valued Defaults section is ignored; allowlist entries replace
// existing ones with the same id and append otherwise (entries without an
// id are assigned one); safe bins are unioned. ImportConfig(ExportConfig())
// is therefore a no-op.
func (s *Store) ImportConfig(in Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := copyConfig(s.cfg)

	if in.Defaults != (Policy{}) {
		s.cfg.Defaults = in.Defaults.normalize()
	}
	for _, entry := range in.Allowlist {
		if entry.Pattern == "" {
			continue
		}
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		replaced := false
		for i := range s.cfg.Allowlist {
			if s.cfg.Allowlist[i].ID == entry.ID {
				s.cfg.Allowlist[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			s.cfg.Allowlist = append(s.cfg.Allowlist, entry)
		}
	}
	s.cfg.SafeBins = dedupe(append(s.cfg.SafeBins, in.SafeBins...))

	if err := s.persistLocked(); err != nil {
		s.cfg = prev
		return err
	}
	return nil
}

// Reset restores factory defaults and persists them.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg
	s.cfg = DefaultConfig()
	if err := s.persistLocked(); err != nil {
		s.cfg = prev
		return err
	}
	return nil
}

// persistLocked writes the configuration atomically: marshal to a temp
// file in the same directory, then rename over the target so a concurrent
// reader of the file never observes a half-written state.
func (s *Store) persistLocked() error {
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func copyConfig(cfg Config) Config {
	out := cfg
	out.Allowlist = make([]AllowlistEntry, len(cfg.Allowlist))
	copy(out.Allowlist, cfg.Allowlist)
	out.SafeBins = make([]string, len(cfg.SafeBins))
	copy(out.SafeBins, cfg.SafeBins)
	return out
}

func dedupe(bins []string) []string {
	seen := make(map[string]bool, len(bins))
	out := bins[:0:0]
	for _, bin := range bins {
		if bin == "" || seen[bin] {
			continue
		}
		seen[bin] = true
		out = append(out, bin)
	}
	return out
}

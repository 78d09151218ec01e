// Package prefs remembers the heading settings a user chose last time, so
// the next run starts from them. Preferences live in a TOML file in the
// user's config directory.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/simp-lee/epubclean"
)

// FileName is the name of the preferences file inside the config directory.
const FileName = "prefs.toml"

// Prefs are the remembered heading settings.
type Prefs struct {
	Prefix   string          `toml:"prefix"`
	Style    epubclean.Style `toml:"style"`
	Trailing string          `toml:"trailing"`
}

// Defaults returns the preferences used before anything was saved.
func Defaults() Prefs {
	d := epubclean.DefaultNumberingConfig()
	return Prefs{Prefix: d.Prefix, Style: d.Style, Trailing: d.Trailing}
}

// Apply copies the preferences into cfg.
func (p Prefs) Apply(cfg *epubclean.NumberingConfig) {
	if p.Prefix != "" {
		cfg.Prefix = p.Prefix
	}
	cfg.Style = p.Style
	cfg.Trailing = p.Trailing
}

// FromConfig extracts the remembered part of cfg.
func FromConfig(cfg epubclean.NumberingConfig) Prefs {
	return Prefs{Prefix: cfg.Prefix, Style: cfg.Style, Trailing: cfg.Trailing}
}

// Store reads and writes the preferences file.
type Store struct {
	mu   sync.Mutex
	path string
}

// DefaultPath returns the preferences file location,
// e.g. ~/.config/epubclean/prefs.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "epubclean", FileName), nil
}

// NewStore returns a store backed by the file at path. An empty path
// selects DefaultPath.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{path: path}, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the preferences. A missing file yields Defaults; fields absent
// from the file keep their default values.
func (s *Store) Load() (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Defaults()
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("prefs: parse %s: %w", s.path, err)
	}
	return p, nil
}

// Save writes p, creating the config directory if needed.
func (s *Store) Save(p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Reset deletes the preferences file.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Package config persists named server profiles for ohc.
//
// Profiles live in a JSON file under the XDG config directory with owner-only
// permissions. At most one profile is the default at any time, and the
// default_server pointer names it or is null.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrCorrupt indicates the config file exists but cannot be parsed.
var ErrCorrupt = errors.New("configuration file is corrupt")

// CorruptError wraps ErrCorrupt with file details.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("failed to load configuration from %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return ErrCorrupt }

// Server is one named server profile.
type Server struct {
	URL     string `json:"url"`
	APIKey  string `json:"api_key"`
	Default bool   `json:"default"`
}

// Config is the full on-disk document.
type Config struct {
	Servers       map[string]*Server
	DefaultServer string
}

type configDoc struct {
	Servers       map[string]*Server `json:"servers"`
	DefaultServer *string            `json:"default_server"`
}

// MarshalJSON writes default_server as null when no default exists.
func (c Config) MarshalJSON() ([]byte, error) {
	doc := configDoc{Servers: c.Servers}
	if c.DefaultServer != "" {
		doc.DefaultServer = &c.DefaultServer
	}
	return json.Marshal(doc)
}

// UnmarshalJSON accepts null or a name for default_server.
func (c *Config) UnmarshalJSON(data []byte) error {
	var doc configDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	c.Servers = doc.Servers
	if c.Servers == nil {
		c.Servers = map[string]*Server{}
	}
	c.DefaultServer = ""
	if doc.DefaultServer != nil {
		c.DefaultServer = *doc.DefaultServer
	}
	return nil
}

// Store reads and writes the profile file. Single-process CLI use only;
// there is no locking discipline.
type Store struct {
	path string
}

// NewStore opens the store at the standard config location
// ($XDG_CONFIG_HOME/ohc/config.json, falling back to ~/.config/ohc).
func NewStore() (*Store, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".config")
	}
	dir = filepath.Join(dir, "ohc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, "config.json")}, nil
}

// NewStoreAt opens a store at an explicit file path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the config, returning an empty structure when no file exists.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{Servers: map[string]*Server{}}, nil
	}
	if err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}
	return &cfg, nil
}

// Save writes the config and restricts it to owner read/write.
func (s *Store) Save(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	// WriteFile only applies the mode on create; clamp pre-existing files too.
	return os.Chmod(s.path, 0o600)
}

// NormalizeURL forces a base URL to end in exactly one trailing /api/
// segment, whatever trailing-slash form was supplied.
func NormalizeURL(raw string) string {
	u := strings.TrimRight(raw, "/")
	if !strings.HasSuffix(u, "/api") {
		u += "/api"
	}
	return u + "/"
}

// Add stores a profile. The first profile ever added becomes the default
// regardless of setDefault; setting default unsets all other profiles.
func (s *Store) Add(name, rawURL, apiKey string, setDefault bool) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}

	cfg.Servers[name] = &Server{
		URL:     NormalizeURL(rawURL),
		APIKey:  apiKey,
		Default: setDefault,
	}

	switch {
	case setDefault:
		for _, srv := range cfg.Servers {
			srv.Default = false
		}
		cfg.Servers[name].Default = true
		cfg.DefaultServer = name
	case cfg.DefaultServer == "" && len(cfg.Servers) == 1:
		cfg.Servers[name].Default = true
		cfg.DefaultServer = name
	}

	return s.Save(cfg)
}

// Remove deletes a profile, reporting false when it does not exist. When
// the default is removed, a remaining profile (first in name order) becomes
// the new default, or the pointer is cleared when none remain.
func (s *Store) Remove(name string) (bool, error) {
	cfg, err := s.Load()
	if err != nil {
		return false, err
	}

	srv, ok := cfg.Servers[name]
	if !ok {
		return false, nil
	}
	wasDefault := srv.Default
	delete(cfg.Servers, name)

	if wasDefault {
		cfg.DefaultServer = ""
		if next := firstName(cfg.Servers); next != "" {
			cfg.Servers[next].Default = true
			cfg.DefaultServer = next
		}
	}

	return true, s.Save(cfg)
}

// SetDefault marks the named profile as default, reporting false when it
// does not exist.
func (s *Store) SetDefault(name string) (bool, error) {
	cfg, err := s.Load()
	if err != nil {
		return false, err
	}

	if _, ok := cfg.Servers[name]; !ok {
		return false, nil
	}
	for _, srv := range cfg.Servers {
		srv.Default = false
	}
	cfg.Servers[name].Default = true
	cfg.DefaultServer = name

	return true, s.Save(cfg)
}

// Get returns the named profile, or the default one when name is empty,
// or the first profile when no default is set. A nil profile with nil
// error means nothing is configured.
func (s *Store) Get(name string) (*Server, string, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, "", err
	}

	if name != "" {
		return cfg.Servers[name], name, nil
	}
	if cfg.DefaultServer != "" {
		if srv, ok := cfg.Servers[cfg.DefaultServer]; ok {
			return srv, cfg.DefaultServer, nil
		}
	}
	if first := firstName(cfg.Servers); first != "" {
		return cfg.Servers[first], first, nil
	}
	return nil, "", nil
}

// List returns all profiles.
func (s *Store) List() (map[string]*Server, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return cfg.Servers, nil
}

// Names returns profile names in sorted order for stable display.
func Names(servers map[string]*Server) []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func firstName(servers map[string]*Server) string {
	names := Names(servers)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// DefaultPath is where the registry lives unless overridden.
const DefaultPath = "~/.zgit_conf.json"

// EnvPath overrides DefaultPath when set.
const EnvPath = "ZGIT_CONFIG"

// ResolvePath expands ~ in path, falling back to $ZGIT_CONFIG and then
// DefaultPath when path is empty.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		path = DefaultPath
	}
	return homedir.Expand(path)
}

// Load reads the registry at path. A missing file yields an empty config.
func Load(path string) (*Config, error) {
	p, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	cfg := New()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", p, err)
	}
	return cfg, nil
}

// Save writes cfg to path, replacing the file atomically.
func Save(path string, cfg *Config) error {
	p, err := ResolvePath(path)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".zgit_conf-*.json")
	if err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Update loads the registry, applies fn and saves the result if fn
// succeeds. This is the only way commands mutate the registry; concurrent
// invocations are last-writer-wins.
func Update(path string, fn func(*Config) error) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return Save(path, cfg)
}

// Package storage provides the two per-mod key/value stores: global
// entries persisted one file per key under a fixed directory, and
// save-scoped entries that live inside the active save session.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ErrInvalidKey is returned for keys that cannot become file names.
var ErrInvalidKey = errors.New("invalid data key")

// keyPattern keeps keys usable as file names on every platform.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// GlobalStore persists entries independent of any save, namespaced by mod
// ID, as one YAML file per key under root/<mod>/<key>.yaml.
type GlobalStore struct {
	root string
}

// NewGlobalStore returns a store rooted at dir.
func NewGlobalStore(dir string) *GlobalStore {
	return &GlobalStore{root: dir}
}

func (g *GlobalStore) path(modID, key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(g.root, strings.ToLower(modID), key+".yaml"), nil
}

// Write persists value under (modID, key), creating directories as needed.
func (g *GlobalStore) Write(modID, key string, value interface{}) error {
	path, err := g.path(modID, key)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding data for key %q: %w", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing data file %s: %w", path, err)
	}
	return nil
}

// Read loads the value stored under (modID, key) into out. The bool
// reports whether the entry exists.
func (g *GlobalStore) Read(modID, key string, out interface{}) (bool, error) {
	path, err := g.path(modID, key)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading data file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decoding data file %s: %w", path, err)
	}
	return true, nil
}

// Delete removes the entry under (modID, key) if present.
func (g *GlobalStore) Delete(modID, key string) error {
	path, err := g.path(modID, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing data file %s: %w", path, err)
	}
	return nil
}

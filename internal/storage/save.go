package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

var (
	// ErrNoSaveLoaded is returned when save-scoped data is accessed
	// outside an active save session.
	ErrNoSaveLoaded = errors.New("no save is loaded")
	// ErrNotAuthoritative is returned when a non-authoritative session
	// (a multiplayer client) tries to write save data.
	ErrNotAuthoritative = errors.New("save data is writable only by the authoritative session")
)

// SaveStore holds save-scoped entries, namespaced by mod ID. The host
// opens a session when a save loads and drains it back when the save
// writes out; between sessions every access fails with ErrNoSaveLoaded.
type SaveStore struct {
	mu            sync.RWMutex
	active        bool
	authoritative bool
	entries       map[string]map[string]string // mod key -> data key -> YAML blob
}

// NewSaveStore returns a store with no active session.
func NewSaveStore() *SaveStore {
	return &SaveStore{}
}

// BeginSession activates the store with data recovered from the save file.
// authoritative marks whether this process owns the save (the host of a
// multiplayer session, or any single-player session).
func (s *SaveStore) BeginSession(authoritative bool, snapshot map[string]map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.authoritative = authoritative
	s.entries = make(map[string]map[string]string, len(snapshot))
	for mod, kv := range snapshot {
		inner := make(map[string]string, len(kv))
		for k, v := range kv {
			inner[k] = v
		}
		s.entries[strings.ToLower(mod)] = inner
	}
}

// EndSession deactivates the store and returns its contents for the host
// to persist into the save file.
func (s *SaveStore) EndSession() map[string]map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.entries
	s.active = false
	s.entries = nil
	return out
}

// Active reports whether a save session is open.
func (s *SaveStore) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Write stores value under (modID, key) in the active session.
func (s *SaveStore) Write(modID, key string, value interface{}) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding data for key %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrNoSaveLoaded
	}
	if !s.authoritative {
		return ErrNotAuthoritative
	}
	modKey := strings.ToLower(modID)
	if s.entries[modKey] == nil {
		s.entries[modKey] = make(map[string]string)
	}
	s.entries[modKey][key] = string(data)
	return nil
}

// Read loads the value under (modID, key) into out. The bool reports
// whether the entry exists.
func (s *SaveStore) Read(modID, key string, out interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.active {
		return false, ErrNoSaveLoaded
	}
	blob, ok := s.entries[strings.ToLower(modID)][key]
	if !ok {
		return false, nil
	}
	if err := yaml.Unmarshal([]byte(blob), out); err != nil {
		return false, fmt.Errorf("decoding data for key %q: %w", key, err)
	}
	return true, nil
}

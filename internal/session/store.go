package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"jobscout-engine/internal/browse"
)

// Store persists the captured cookie blob on disk. The blob is opaque: it is
// written and read back exactly, never inspected. A file lock keeps a second
// engine process from clobbering a save in progress.
type Store struct {
	path string
	lock *flock.Flock
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (s *Store) Path() string { return s.path }

// Save writes the blob atomically (temp file + rename).
func (s *Store) Save(blob []browse.Cookie) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("session lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load returns the persisted blob, or ok=false when none has been saved yet.
func (s *Store) Load() (blob []browse.Cookie, ok bool, err error) {
	if err := s.lock.RLock(); err != nil {
		return nil, false, fmt.Errorf("session lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(b, &blob); err != nil {
		// A corrupt session file is the same as no session.
		return nil, false, nil
	}
	return blob, true, nil
}

// Clear removes the persisted blob. Missing file is fine.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

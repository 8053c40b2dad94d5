package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gigmatch/gigmatch/internal/model"
)

// ProfileStore persists user profiles with the same whole-file
// load → mutate → atomic-rename discipline as the record store.
type ProfileStore struct {
	path string
	mu   sync.Mutex
}

// NewProfileStore opens (or creates) the backing file at path.
func NewProfileStore(path string) (*ProfileStore, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("init profile store: %w", err)
		}
	}
	return &ProfileStore{path: path}, nil
}

func (s *ProfileStore) load() (map[string]*model.Profile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read profile store: %w", err)
	}
	data := make(map[string]*model.Profile)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse profile store: %w", err)
	}
	return data, nil
}

func (s *ProfileStore) save(data map[string]*model.Profile) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write profile store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace profile store: %w", err)
	}
	return nil
}

// Get returns a copy of the user's profile, or model.ErrNoProfile.
func (s *ProfileStore) Get(userID int64) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	p, ok := data[userKey(userID)]
	if !ok {
		return nil, model.ErrNoProfile
	}
	cp := *p
	return &cp, nil
}

// Upsert creates or replaces the user's profile.
func (s *ProfileStore) Upsert(userID int64, profile model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[userKey(userID)] = &profile
	return s.save(data)
}

// Delete removes the user's profile. Deleting a missing profile is a no-op.
func (s *ProfileStore) Delete(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	delete(data, userKey(userID))
	return s.save(data)
}

package envelope

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStateStore persists control number state as a small YAML file:
//
//	interchange: 41
//	group: 41
//	transaction: 97
//
// Saves are written to a temporary file and renamed, so a crash never
// leaves a truncated state file behind.
type FileStateStore struct {
	Path string

	mu sync.Mutex
}

// NewFileStateStore creates a store at path.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{Path: path}
}

// Load reads the persisted state. A missing file is an empty state.
func (s *FileStateStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read control number state: %w", err)
	}

	state := State{}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse control number state %s: %w", s.Path, err)
	}
	return state, nil
}

// Save writes state, replacing the previous file.
func (s *FileStateStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

// Checkpoint saves the current state of m. The snapshot is taken while
// holding the store lock, so concurrent checkpoints never write an older
// state over a newer one.
func (s *FileStateStore) Checkpoint(m *Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(m.State())
}

func (s *FileStateStore) save(state State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode control number state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".control-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Restore loads the store into m.
func Restore(m *Manager, s *FileStateStore) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	return m.Restore(state)
}

package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"poolEngine/internal/model"
)

// Store persists the pool's world state to a local JSON file. Saves go
// through a temp file and rename so a crash never leaves a torn state.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the state file. The second return is false when no state has
// been written yet.
func (s *Store) Load() (model.StateFile, bool, error) {
	stat, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.EmptyStateFile(), false, nil
		}
		return model.StateFile{}, false, fmt.Errorf("stat state file: %w", err)
	}
	if stat.IsDir() {
		return model.StateFile{}, false, fmt.Errorf("state path is a directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return model.StateFile{}, false, fmt.Errorf("read state file: %w", err)
	}

	var st model.StateFile
	if err := json.Unmarshal(data, &st); err != nil {
		return model.StateFile{}, false, fmt.Errorf("parse state file: %w", err)
	}

	return st, true, nil
}

// Save atomically writes the state file.
func (s *Store) Save(st model.StateFile) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state file: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}

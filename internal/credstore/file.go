// Package credstore persists the session snapshot across process
// restarts. The snapshot is a versioned contract: it is serialized whole
// and replaced atomically, never patched field by field.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/you/scamwatch/domain"
)

// FileStore implements domain.CredentialStore on a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed credential store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the whole snapshot atomically: serialize to a temp file in
// the same directory, then rename over the target.
func (s *FileStore) Save(snapshot *domain.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to restrict snapshot permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot. A missing file, unreadable JSON or a
// snapshot of a different schema version all report ErrSnapshotNotFound;
// the caller treats them uniformly as "nothing to rehydrate".
func (s *FileStore) Load() (*domain.SessionSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot domain.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, domain.ErrSnapshotNotFound
	}
	if snapshot.Version != domain.SnapshotVersion {
		return nil, domain.ErrSnapshotNotFound
	}
	return &snapshot, nil
}

// Clear discards the persisted snapshot. Clearing an absent snapshot is
// not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.CredentialStore = (*FileStore)(nil)

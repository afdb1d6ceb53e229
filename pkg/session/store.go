// Package session provides the key/value persistence the workflow controller
// uses to save and restore the most recent analysis. The store is a narrow,
// best-effort collaborator: it may be unavailable (read-only profile, quota)
// and the workflow treats its failures as "session not saved", never as
// fatal.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnavailable wraps store read/write failures.
var ErrUnavailable = errors.New("session store unavailable")

// Store is a synchronous key/value persistence surface. Get reports absence
// through its second return value; absence is a normal outcome, not an
// error.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// FileStore persists each key as one file under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created
// lazily on the first Set.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	// Keys are dotted identifiers; keep them filesystem-safe.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.dir, safe)
}

func (s *FileStore) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(data), true, nil
}

func (s *FileStore) Set(key, value string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.WriteFile(s.path(key), []byte(value), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) Remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests and examples.
type MemStore struct {
	values map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}

func (s *MemStore) Remove(key string) error {
	delete(s.values, key)
	return nil
}

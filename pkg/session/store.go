package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the session document's fixed name inside the working directory.
const FileName = ".cosmo"

// ErrNotInitialized is returned by Load when no session document exists at
// the expected location. Callers rely on distinguishing this from other I/O
// failures to print an actionable "run 'cosmo init' first" message.
var ErrNotInitialized = errors.New("working directory is not initialized, run 'cosmo init' first")

// Store loads and persists the session document for one working directory.
// Concurrent invocations against the same directory are not synchronized;
// last writer wins, which is acceptable for a single-operator CLI.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. An empty dir means the current
// working directory.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = "."
	}
	return &Store{dir: dir}
}

// Dir returns the working directory this store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the location of the session document.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Exists reports whether a session document is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Load reads and decodes the session document.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to read session document: %w", err)
	}
	return Decode(data)
}

// Save encodes and writes the session document.
func (s *Store) Save(doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session document: %w", err)
	}
	return nil
}

// Update loads the document, hands it to fn for in-place mutation, and
// persists it again. The document is saved even when fn returns an error,
// so partial mutations made before the failure are committed; fn's error is
// returned to the caller either way. A save failure after a successful fn
// is the returned error.
func (s *Store) Update(fn func(doc *Document) error) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	fnErr := fn(doc)
	if saveErr := s.Save(doc); saveErr != nil && fnErr == nil {
		return saveErr
	}
	return fnErr
}

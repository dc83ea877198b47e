// Package statestore persists named JSON documents with atomic replacement.
// A reader never observes a half-written document: writes land in a
// temporary file that is renamed over the real one.
package statestore

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Load reads the document named name into v. A missing or unreadable
// document is not an error: v is left at whatever default the caller
// initialized it to, and the condition is logged.
func (s *Store) Load(name string, v any) error {
	path := s.path(name)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("State document %s unreadable, using defaults: %v", name, err)
		}
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("State document %s corrupt, using defaults: %v", name, err)
		return nil
	}

	return nil
}

// Save durably writes v as the document named name. The document is
// serialized to a temporary file in the same directory and renamed into
// place so concurrent readers see either the old or the new version.
func (s *Store) Save(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", name, err)
	}

	path := s.path(name)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write document %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync document %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace document %s: %w", name, err)
	}

	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

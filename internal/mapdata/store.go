// Package mapdata serves the GeoJSON tilesets backing the map and powers the
// store search. Files live in a local assets directory and are cached
// in-process; the editor invalidates the cache on save.
package mapdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrInvalidName is returned for filenames that are not plain .json files.
	ErrInvalidName = errors.New("only .json files are supported")
	// ErrNotFound is returned when the requested file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidJSON is returned when a file or payload is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// metaFile is the dataset the search endpoints run over.
const metaFile = "meta.json"

// Store reads, caches and writes the JSON files in the assets directory.
type Store struct {
	dir string

	mu    sync.RWMutex
	files map[string][]byte
	meta  *FeatureCollection
}

// NewStore creates a Store over the given assets directory.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		files: make(map[string][]byte),
	}
}

// File returns the raw contents of a JSON file, served from cache after the
// first read.
func (s *Store) File(name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	cached, ok := s.files[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}

	s.mu.Lock()
	s.files[name] = data
	s.mu.Unlock()
	return data, nil
}

// Meta returns the parsed search dataset, cached after the first load.
func (s *Store) Meta() (*FeatureCollection, error) {
	s.mu.RLock()
	cached := s.meta
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	data, err := s.File(metaFile)
	if err != nil {
		return nil, err
	}

	var meta FeatureCollection
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", metaFile, ErrInvalidJSON)
	}

	s.mu.Lock()
	s.meta = &meta
	s.mu.Unlock()
	return &meta, nil
}

// List enumerates the JSON files available in the assets directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Save validates and writes a JSON file, then drops it from the cache so the
// next read picks up the new contents.
func (s *Store) Save(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !json.Valid(data) {
		return ErrInvalidJSON
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}

	s.mu.Lock()
	delete(s.files, name)
	if name == metaFile {
		s.meta = nil
	}
	s.mu.Unlock()
	return nil
}

func validateName(name string) error {
	if !strings.HasSuffix(name, ".json") {
		return ErrInvalidName
	}
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		return ErrInvalidName
	}
	return nil
}

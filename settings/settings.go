// Package settings persists small user preferences, such as the
// "do not ask again" flags of confirmation prompts.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is a boolean key/value store.
type Store interface {
	Bool(key string) bool
	SetBool(key string, v bool) error
}

// MemStore keeps flags in memory.
type MemStore struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{flags: make(map[string]bool)}
}

// Bool returns the flag for key, false when unset.
func (m *MemStore) Bool(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[key]
}

// SetBool sets the flag for key.
func (m *MemStore) SetBool(key string, v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[key] = v
	return nil
}

type fileData struct {
	DoNotAskAgain map[string]bool `yaml:"doNotAskAgain"`
}

// FileStore keeps flags in a YAML file. Every SetBool rewrites the file.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data fileData
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: fileData{DoNotAskAgain: make(map[string]bool)}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(raw, &fs.data); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if fs.data.DoNotAskAgain == nil {
		fs.data.DoNotAskAgain = make(map[string]bool)
	}
	return fs, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

// Bool returns the flag for key, false when unset.
func (f *FileStore) Bool(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.data.DoNotAskAgain[key]
}

// SetBool sets the flag and writes the file.
func (f *FileStore) SetBool(key string, v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.DoNotAskAgain[key] = v
	return f.save()
}

// save writes to a temporary file and renames it over the target.
func (f *FileStore) save() error {
	raw, err := yaml.Marshal(&f.data)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

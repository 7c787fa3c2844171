package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Tokens is the persisted part of a session
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether no session is stored
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// TokenStore persists tokens between runs. Load returns empty Tokens when
// nothing is stored.
type TokenStore interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
}

// NewTokenStore returns a FileStore at path, or a MemoryStore if path is empty
func NewTokenStore(path string) TokenStore {
	if path == "" {
		return &MemoryStore{}
	}
	return &FileStore{Path: path}
}

// MemoryStore keeps tokens for the life of the process
type MemoryStore struct {
	mu     sync.Mutex
	tokens Tokens
}

func (m *MemoryStore) Load() (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, nil
}

func (m *MemoryStore) Save(t Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = t
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save(Tokens{})
}

// FileStore keeps tokens in a JSON file readable only by the current user
type FileStore struct {
	Path string

	mu sync.Mutex
}

func (f *FileStore) Load() (Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Tokens{}, nil
	}
	if err != nil {
		return Tokens{}, err
	}
	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, err
	}
	return t, nil
}

func (f *FileStore) Save(t Tokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Package session holds the operator's bearer token and profile. Every
// outbound backend call reads the token through a Store, and a 401 response
// clears it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"foodviz/internal/domain"
	"foodviz/internal/storage"
)

// Session is the persisted login state.
type Session struct {
	Token     string      `json:"token"`
	User      domain.User `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Store is the single access point for session state.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
	// ClearToken clears the session only while it still holds token, so a
	// late rejection of an old token cannot log out a newer login.
	ClearToken(ctx context.Context, token string) (bool, error)
}

// Token reads the current bearer token, returning "" when no session exists.
func Token(ctx context.Context, store Store) string {
	if store == nil {
		return ""
	}
	s, err := store.Load(ctx)
	if err != nil {
		return ""
	}
	return s.Token
}

// FileStore persists the session as JSON in a local state directory.
type FileStore struct {
	mu    sync.Mutex
	files *storage.FileStore
	key   string
}

// NewFileStore opens (without reading) the session document at path.
func NewFileStore(path string) (*FileStore, error) {
	files, key, err := storage.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &FileStore{files: files, key: key}, nil
}

// Load returns the stored session; a missing file is an empty session.
func (f *FileStore) Load(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(ctx)
}

func (f *FileStore) load(ctx context.Context) (Session, error) {
	data, err := f.files.Read(ctx, f.key)
	if errors.Is(err, storage.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("session: decode: %w", err)
	}
	return s, nil
}

// Save replaces the stored session.
func (f *FileStore) Save(ctx context.Context, s Session) error {
	if !s.Valid() {
		return errors.New("session: token is required")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.files.Write(ctx, f.key, data); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// Clear removes the token and user.
func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.files.Remove(ctx, f.key); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// ClearToken removes the session file if it still carries token.
func (f *FileStore) ClearToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.load(ctx)
	if err != nil {
		return false, err
	}
	if current.Token != token {
		return false, nil
	}
	if err := f.files.Remove(ctx, f.key); err != nil {
		return false, fmt.Errorf("session: %w", err)
	}
	return true, nil
}

// MemoryStore keeps the session in memory. Used by tests and by the
// dashboard service when no state directory is configured.
type MemoryStore struct {
	mu      sync.Mutex
	current Session
	clears  int
}

// NewMemoryStore returns a store seeded with s.
func NewMemoryStore(s Session) *MemoryStore {
	return &MemoryStore{current: s}
}

func (m *MemoryStore) Load(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if !s.Valid() {
		return errors.New("session: token is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Session{}
	m.clears++
	return nil
}

func (m *MemoryStore) ClearToken(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" || m.current.Token != token {
		return false, nil
	}
	m.current = Session{}
	m.clears++
	return true, nil
}

// Clears reports how many times Clear was called.
func (m *MemoryStore) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

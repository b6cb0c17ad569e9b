package session

import (
	"context"
	"path/filepath"
	"testing"

	"foodviz/internal/domain"
)

func TestFileStoreLifecycle(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if empty.Valid() {
		t.Fatalf("expected empty session, got %+v", empty)
	}

	want := Session{Token: "tok-1", User: domain.User{Username: "admin", Role: domain.UserRoleAdmin}}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Token != "tok-1" || got.User.Username != "admin" || !got.User.IsAdmin() {
		t.Fatalf("Load = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be stamped")
	}
	if tok := Token(ctx, store); tok != "tok-1" {
		t.Fatalf("Token = %q", tok)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if tok := Token(ctx, store); tok != "" {
		t.Fatalf("Token after Clear = %q, want empty", tok)
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	store := NewMemoryStore(Session{})
	if err := store.Save(context.Background(), Session{Token: "  "}); err == nil {
		t.Fatalf("expected error for blank token")
	}
}

func TestMemoryStoreCountsClears(t *testing.T) {
	store := NewMemoryStore(Session{Token: "abc"})
	ctx := context.Background()
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if store.Clears() != 1 {
		t.Fatalf("Clears = %d, want 1", store.Clears())
	}
	if Token(ctx, store) != "" {
		t.Fatalf("expected token to be cleared")
	}
}

func TestTokenWithNilStore(t *testing.T) {
	if got := Token(context.Background(), nil); got != "" {
		t.Fatalf("Token(nil) = %q", got)
	}
}

func TestClearTokenOnlyRemovesMatchingSession(t *testing.T) {
	file, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	stores := map[string]Store{
		"file":   file,
		"memory": NewMemoryStore(Session{}),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Save(ctx, Session{Token: "new"}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			cleared, err := store.ClearToken(ctx, "old")
			if err != nil || cleared {
				t.Fatalf("ClearToken(old) = %v, %v", cleared, err)
			}
			if tok := Token(ctx, store); tok != "new" {
				t.Fatalf("token = %q, want new", tok)
			}
			cleared, err = store.ClearToken(ctx, "new")
			if err != nil || !cleared {
				t.Fatalf("ClearToken(new) = %v, %v", cleared, err)
			}
			if tok := Token(ctx, store); tok != "" {
				t.Fatalf("token = %q, want empty", tok)
			}
		})
	}
}

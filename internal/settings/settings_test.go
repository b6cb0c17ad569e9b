package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"foodviz/internal/domain"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, path
}

func TestLoadReturnsDefaultsWhenMissing(t *testing.T) {
	store, _ := newStore(t)
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("Load = %+v, want defaults", got)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	store, path := newStore(t)
	if err := os.WriteFile(path, []byte(`{"darkMode":true,"currency":"pkr"}`), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	want.DarkMode = true
	want.Currency = "PKR"
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestLoadRepairsInvalidValues(t *testing.T) {
	store, path := newStore(t)
	if err := os.WriteFile(path, []byte(`{"autoSave":false,"language":"de","currency":"???"}`), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AutoSave {
		t.Fatalf("valid fields should survive repair")
	}
	if got.Language != "en" || got.Currency != "USD" {
		t.Fatalf("Load = %+v", got)
	}
}

func TestLoadIgnoresCorruptDocument(t *testing.T) {
	store, path := newStore(t)
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("Load = %+v, want defaults", got)
	}
}

func TestUpdatePersistsPatch(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	dark := true
	lang := "ur-PK"
	got, err := store.Update(ctx, Patch{DarkMode: &dark, Language: &lang})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.DarkMode || got.Language != "ur" {
		t.Fatalf("Update = %+v", got)
	}
	reloaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded != got {
		t.Fatalf("reloaded = %+v, want %+v", reloaded, got)
	}
}

func TestUpdateRejectsUnknownCurrency(t *testing.T) {
	store, _ := newStore(t)
	bad := "ZZZ"
	_, err := store.Update(context.Background(), Patch{Currency: &bad})
	var fieldErr *domain.FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "currency" {
		t.Fatalf("err = %v, want currency field error", err)
	}
	got, _ := store.Load(context.Background())
	if got.Currency != "USD" {
		t.Fatalf("failed update must not persist, got %+v", got)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	off := false
	if _, err := store.Update(ctx, Patch{Notifications: &off}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, _ := store.Load(ctx)
	if got != Defaults() {
		t.Fatalf("Load after reset = %+v", got)
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", language.English},
		{"fr-CA,fr;q=0.9", language.French},
		{"de-DE", language.English},
		{"ur", language.Urdu},
	}
	for _, tc := range tests {
		if got := MatchLanguage(tc.in); got != tc.want {
			t.Fatalf("MatchLanguage(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	s := Defaults()
	got := s.FormatPrice(12.5)
	if !strings.Contains(got, "12.50") {
		t.Fatalf("FormatPrice = %q", got)
	}
}

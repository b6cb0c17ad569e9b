// Package settings stores operator preferences in a local JSON document.
// Stored values are merged over defaults so documents written by older
// versions keep working.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"foodviz/internal/domain"
	"foodviz/internal/storage"
)

// Settings are the operator's dashboard preferences.
type Settings struct {
	Notifications bool   `json:"notifications"`
	DarkMode      bool   `json:"darkMode"`
	AutoSave      bool   `json:"autoSave"`
	Language      string `json:"language"`
	Currency      string `json:"currency"`
}

// Defaults returns the settings used when nothing has been stored.
func Defaults() Settings {
	return Settings{
		Notifications: true,
		DarkMode:      false,
		AutoSave:      true,
		Language:      "en",
		Currency:      "USD",
	}
}

// SupportedLanguages lists the interface languages offered to operators.
var SupportedLanguages = []language.Tag{
	language.English,
	language.Urdu,
	language.Arabic,
	language.Spanish,
	language.French,
}

var matcher = language.NewMatcher(SupportedLanguages)

// MatchLanguage maps any BCP 47 tag or Accept-Language header onto a
// supported language, falling back to English.
func MatchLanguage(raw string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return SupportedLanguages[idx]
}

// Validate normalises language and currency codes in place.
func (s *Settings) Validate() error {
	tag, err := language.Parse(strings.TrimSpace(s.Language))
	if err != nil {
		return &domain.FieldError{Field: "language", Message: "language must be a valid language code"}
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return &domain.FieldError{Field: "language", Message: fmt.Sprintf("language %q is not supported", s.Language)}
	}
	base, _ := SupportedLanguages[idx].Base()
	s.Language = base.String()

	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(s.Currency)))
	if err != nil {
		return &domain.FieldError{Field: "currency", Message: "currency must be an ISO 4217 code"}
	}
	s.Currency = unit.String()
	return nil
}

// FormatPrice renders an amount in the operator's currency and language.
func (s Settings) FormatPrice(amount float64) string {
	unit, err := currency.ParseISO(strings.ToUpper(s.Currency))
	if err != nil {
		unit = currency.USD
	}
	tag := MatchLanguage(s.Language)
	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(unit.Amount(amount)))
}

// Store persists settings as a JSON document.
type Store struct {
	mu    sync.Mutex
	files *storage.FileStore
	key   string
}

// NewStore opens the settings document at path.
func NewStore(path string) (*Store, error) {
	files, key, err := storage.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return &Store{files: files, key: key}, nil
}

// Load returns stored settings merged over defaults. A missing or corrupt
// document yields the defaults.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Defaults()
	data, err := s.files.Read(ctx, s.key)
	if errors.Is(err, storage.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("settings: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return Defaults(), nil
	}
	d := Defaults()
	if _, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(out.Currency))); err != nil {
		out.Currency = d.Currency
	}
	if err := out.Validate(); err != nil {
		out.Language = d.Language
		if err := out.Validate(); err != nil {
			return d, nil
		}
	}
	return out, nil
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Notifications *bool   `json:"notifications,omitempty"`
	DarkMode      *bool   `json:"darkMode,omitempty"`
	AutoSave      *bool   `json:"autoSave,omitempty"`
	Language      *string `json:"language,omitempty"`
	Currency      *string `json:"currency,omitempty"`
}

// Apply returns s with the patch applied.
func (p Patch) Apply(s Settings) Settings {
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.AutoSave != nil {
		s.AutoSave = *p.AutoSave
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	return s
}

// Update applies a patch to the stored settings and persists the result.
func (s *Store) Update(ctx context.Context, patch Patch) (Settings, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return current, err
	}
	if err := s.Save(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}

// Save validates and writes settings.
func (s *Store) Save(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.files.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}

// Reset removes stored settings so defaults apply again.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.files.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}

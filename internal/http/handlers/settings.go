package handlers

import (
	"encoding/json"
	"net/http"

	"foodviz/internal/middleware"
	"foodviz/internal/settings"
)

// GetSettings returns stored preferences plus locale hints for the caller.
func (a *App) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := a.Settings.Load(r.Context())
	if err != nil {
		a.fail(w, err, "failed to load settings")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"settings":           s,
		"request_locale":     middleware.LocaleFromContext(r.Context()),
		"suggested_currency": middleware.SuggestedCurrency(r.Context()),
		"price_sample":       s.FormatPrice(1234.5),
	})
}

func (a *App) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	s, err := a.Settings.Update(r.Context(), patch)
	if err != nil {
		a.fail(w, err, "failed to save settings")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"settings": s})
}

func (a *App) ResetSettings(w http.ResponseWriter, r *http.Request) {
	if err := a.Settings.Reset(r.Context()); err != nil {
		a.fail(w, err, "failed to reset settings")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"settings": settings.Defaults()})
}

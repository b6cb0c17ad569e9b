package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodviz/internal/analytics"
	"foodviz/internal/domain"
)

func (a *App) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.Client.ListCategories(r.Context())
	if err != nil {
		a.fail(w, err, "failed to load categories")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":   categories,
		"summary": analytics.Summarize(categories),
	})
}

// CreateCategory adds a category and returns the refreshed list so counts
// stay server computed.
func (a *App) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	created, err := a.Client.CreateCategory(r.Context(), req)
	if err != nil {
		a.fail(w, err, "failed to create category")
		return
	}
	categories, err := a.Client.ListCategories(r.Context())
	if err != nil {
		a.Logger.Warn().Err(err).Msg("reload categories after create")
		categories = []domain.Category{created}
	}
	a.json(w, http.StatusCreated, map[string]any{
		"category": created,
		"items":    categories,
		"summary":  analytics.Summarize(categories),
	})
}

func (a *App) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		a.fail(w, domain.ErrConfirmationRequired, "failed to delete category")
		return
	}
	if err := a.Client.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, err, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

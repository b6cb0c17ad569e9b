package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	snap := a.Catalog.Snapshot()
	a.json(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"backend":          a.Client.BaseURL(),
		"products":         len(snap.Products),
		"last_refresh":     snap.RefreshedAt,
		"catalog_error":    snap.Error,
		"conversions_busy": a.Tracker.Pending(),
	})
}

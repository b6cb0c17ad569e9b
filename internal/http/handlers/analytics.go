package handlers

import (
	"net/http"
	"time"

	"foodviz/internal/analytics"
)

// Analytics summarises the cached catalog. Backend analytics are included
// when requested with ?backend=true; a failure there does not hide the local figures.
func (a *App) Analytics(w http.ResponseWriter, r *http.Request) {
	snap := a.Catalog.Snapshot()
	stats := analytics.Compute(snap.Products, time.Now())
	body := map[string]any{
		"stats":           stats,
		"categories":      analytics.Ranked(stats.ByCategory),
		"completion_rate": analytics.CompletionRate(stats),
		"refreshed_at":    snap.RefreshedAt,
		"conversions":     a.Tracker.Pending(),
	}
	if r.URL.Query().Get("backend") == "true" {
		remote, err := a.Client.Analytics(r.Context())
		if err != nil {
			a.Logger.Warn().Err(err).Msg("backend analytics unavailable")
			body["backend_error"] = err.Error()
		} else {
			body["backend"] = remote
		}
	}
	a.json(w, http.StatusOK, body)
}

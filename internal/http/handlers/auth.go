package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"foodviz/internal/domain"
	"foodviz/internal/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login forwards credentials to the backend and stores the session. The
// catalog is refreshed right away so the dashboard does not wait a full
// poll interval after a fresh login.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	s, err := a.Client.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, err, "login failed")
		return
	}
	if err := a.Catalog.Refresh(r.Context()); err != nil {
		a.Logger.Warn().Err(err).Msg("refresh after login failed")
	}
	if a.OnLogin != nil {
		a.OnLogin()
	}
	a.json(w, http.StatusOK, map[string]any{"user": s.User, "logged_in_at": s.CreatedAt})
}

func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.Client.Logout(r.Context()); err != nil {
		a.fail(w, err, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the backend's view of the operator, falling back to the stored
// profile when the backend does not expose /auth/me.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	user, err := a.Client.Me(r.Context())
	if err != nil {
		stored, ok := middleware.UserFromContext(r.Context())
		if !ok || !errors.Is(err, domain.ErrNotFound) {
			a.fail(w, err, "failed to load profile")
			return
		}
		user = stored
	}
	a.json(w, http.StatusOK, map[string]any{"user": user, "is_admin": user.IsAdmin()})
}

func (a *App) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	user, err := a.Client.UpdateProfile(r.Context(), req)
	if err != nil {
		a.fail(w, err, "failed to update profile")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"user": user})
}

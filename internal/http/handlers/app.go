package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"foodviz/internal/api"
	"foodviz/internal/catalog"
	"foodviz/internal/conversion"
	"foodviz/internal/domain"
	"foodviz/internal/infra"
	"foodviz/internal/settings"
)

// App carries the dependencies shared by every handler.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Client   *api.Client
	Catalog  *catalog.Catalog
	Tracker  *conversion.Tracker
	Settings *settings.Store
	URLs     catalog.URLs

	// OnLogin runs after a successful login, e.g. to restart catalog polling.
	OnLogin func()
}

func NewApp(cfg *infra.Config, logger infra.Logger, client *api.Client, cat *catalog.Catalog, tracker *conversion.Tracker, store *settings.Store) *App {
	return &App{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Catalog:  cat,
		Tracker:  tracker,
		Settings: store,
		URLs:     catalog.URLs{AssetBase: cfg.AssetBaseURL, Frontend: cfg.FrontendURL},
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": errorBody{Code: errCode, Message: message}})
}

// fail maps domain and backend errors onto a status and a visible message.
func (a *App) fail(w http.ResponseWriter, err error, fallback string) {
	body := errorBody{Code: "internal", Message: api.MessageOf(err, fallback)}
	var status int

	var fe *domain.FieldError
	var apiErr *api.Error
	switch {
	case errors.As(err, &fe):
		status, body.Code, body.Message, body.Field = http.StatusBadRequest, "validation", fe.Message, fe.Field
	case errors.Is(err, domain.ErrUnauthorized):
		status, body.Code = http.StatusUnauthorized, "unauthorized"
		body.Message = "Session expired. Please log in again."
	case errors.Is(err, domain.ErrNotFound):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConfirmationRequired):
		status, body.Code, body.Message = http.StatusPreconditionRequired, "confirmation_required", "pass confirm=true to delete"
	case errors.Is(err, domain.ErrDuplicateOperation):
		status, body.Code, body.Message = http.StatusConflict, "in_progress", "conversion already in progress"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, body.Code = http.StatusConflict, "invalid_transition"
		body.Message = err.Error()
	case errors.Is(err, domain.ErrValidation):
		status, body.Code = http.StatusBadRequest, "validation"
		if errors.As(err, &apiErr) {
			body.Field = apiErr.Field
		}
	case errors.Is(err, domain.ErrTransient):
		status, body.Code = http.StatusBadGateway, "upstream_unavailable"
	default:
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		a.Logger.Error().Err(err).Msg(fallback)
	}
	a.json(w, status, map[string]any{"error": body})
}

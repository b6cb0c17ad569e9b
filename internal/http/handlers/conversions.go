package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodviz/internal/domain"
)

type conversionRequest struct {
	ProductID string `json:"productId"`
	ImageURL  string `json:"imageUrl"`
}

// StartConversion asks the backend to build a 3D model. When no image URL is
// given, the product's own image is used.
func (a *App) StartConversion(w http.ResponseWriter, r *http.Request) {
	var req conversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	imageURL, ok := a.conversionImage(w, r, req.ProductID, req.ImageURL)
	if !ok {
		return
	}
	job, err := a.Tracker.Start(r.Context(), req.ProductID, imageURL)
	a.conversionResult(w, job, err)
}

func (a *App) RetryConversion(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	var req conversionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	job, err := a.Tracker.Retry(r.Context(), productID, req.ImageURL)
	a.conversionResult(w, job, err)
}

func (a *App) ListConversions(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"items":   a.Tracker.Jobs(),
		"pending": a.Tracker.Pending(),
	})
}

func (a *App) GetConversion(w http.ResponseWriter, r *http.Request) {
	job, _ := a.Tracker.Job(chi.URLParam(r, "productId"))
	a.json(w, http.StatusOK, map[string]any{"job": job})
}

func (a *App) conversionImage(w http.ResponseWriter, r *http.Request, productID, imageURL string) (string, bool) {
	if imageURL != "" || productID == "" {
		return imageURL, true
	}
	product, err := a.Catalog.FindByID(r.Context(), productID)
	if err != nil {
		a.fail(w, err, "failed to load product")
		return "", false
	}
	if product.ImageURL == "" {
		a.fail(w, &domain.FieldError{Field: "imageUrl", Message: "product has no image to convert"}, "failed to start conversion")
		return "", false
	}
	return a.URLs.Image(product.ImageURL), true
}

// conversionResult reports request failures as a failed job, not as an HTTP
// error, so the caller can show the message next to the product and offer a retry.
func (a *App) conversionResult(w http.ResponseWriter, job domain.ConversionJob, err error) {
	switch {
	case err == nil:
		a.json(w, http.StatusAccepted, map[string]any{"job": job})
	case job.State == domain.ConversionFailed && job.Failure == domain.FailureRequest && !errors.Is(err, domain.ErrInvalidTransition):
		if errors.Is(err, domain.ErrUnauthorized) {
			a.fail(w, err, "failed to start conversion")
			return
		}
		a.json(w, http.StatusBadGateway, map[string]any{"job": job, "error": errorBody{Code: "conversion_failed", Message: job.ErrorMessage}})
	default:
		a.fail(w, err, "failed to start conversion")
	}
}

package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ModelStatus enumerates the backend-reported state of a product's 3D model.
type ModelStatus string

const (
	ModelStatusPending    ModelStatus = "pending"
	ModelStatusProcessing ModelStatus = "processing"
	ModelStatusCompleted  ModelStatus = "completed"
	ModelStatusFailed     ModelStatus = "failed"
)

// NormalizeModelStatus maps free-form backend values onto the known set.
// Unknown or empty values are treated as pending.
func NormalizeModelStatus(raw string) ModelStatus {
	switch ModelStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case ModelStatusProcessing:
		return ModelStatusProcessing
	case ModelStatusCompleted:
		return ModelStatusCompleted
	case ModelStatusFailed:
		return ModelStatusFailed
	default:
		return ModelStatusPending
	}
}

// InFlight reports whether the backend is still working on the model.
func (s ModelStatus) InFlight() bool {
	return s == ModelStatusPending || s == ModelStatusProcessing
}

// Product is the client-side snapshot of a catalog entry owned by the backend.
type Product struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Price       float64     `json:"price"`
	Barcode     string      `json:"barcode,omitempty"`
	ImageURL    string      `json:"imageUrl"`
	ModelStatus ModelStatus `json:"modelStatus"`
	ModelURL    string      `json:"modelUrl,omitempty"`
}

// UnmarshalJSON accepts both the `_id` and `id` identity fields the backend has
// used across revisions and normalizes the model status.
func (p *Product) UnmarshalJSON(data []byte) error {
	type wire struct {
		MongoID     string  `json:"_id"`
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Price       float64 `json:"price"`
		Barcode     string  `json:"barcode"`
		ImageURL    string  `json:"imageUrl"`
		ModelStatus string  `json:"modelStatus"`
		ModelURL    string  `json:"modelUrl"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id := w.MongoID
	if id == "" {
		id = w.ID
	}
	*p = Product{
		ID:          id,
		Name:        w.Name,
		Description: w.Description,
		Category:    w.Category,
		Price:       w.Price,
		Barcode:     w.Barcode,
		ImageURL:    w.ImageURL,
		ModelStatus: NormalizeModelStatus(w.ModelStatus),
		ModelURL:    strings.TrimSpace(w.ModelURL),
	}
	return nil
}

// PreviewEligible reports whether the product has a finished model that can be
// shown in the 3D viewer.
func (p Product) PreviewEligible() bool {
	return p.ModelStatus == ModelStatusCompleted && p.ModelURL != ""
}

// ProductInput carries the operator-entered fields for a new product.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Category    string
	Barcode     string
	ModelURL    string
	ModelStatus ModelStatus
}

// Validate checks required fields before anything is sent to the backend.
// The returned error is a *FieldError naming the first offending field.
func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &FieldError{Field: "name", Message: "name is required"}
	}
	price := strings.TrimSpace(in.Price)
	if price == "" {
		return &FieldError{Field: "price", Message: "price is required"}
	}
	v, err := strconv.ParseFloat(price, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return &FieldError{Field: "price", Message: "price must be a number"}
	}
	if v < 0 {
		return &FieldError{Field: "price", Message: "price must not be negative"}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &FieldError{Field: "category", Message: "category is required"}
	}
	return nil
}

// Category groups products; Count is computed by the backend.
type Category struct {
	ID          string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count"`
	Color       string `json:"color,omitempty"`
}

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

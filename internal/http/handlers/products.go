package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"foodviz/internal/catalog"
	"foodviz/internal/domain"
)

const maxUploadBytes = 64 << 20

type productView struct {
	ID             string                 `json:"_id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Category       string                 `json:"category"`
	Price          float64                `json:"price"`
	PriceLabel     string                 `json:"priceLabel,omitempty"`
	Barcode        string                 `json:"barcode,omitempty"`
	ImageURL       string                 `json:"imageUrl"`
	ModelStatus    domain.ModelStatus     `json:"modelStatus"`
	ModelURL       string                 `json:"modelUrl,omitempty"`
	Preview        bool                   `json:"previewEligible"`
	ViewerURL      string                 `json:"viewerUrl,omitempty"`
	Conversion     domain.ConversionState `json:"conversion"`
	ConversionNote string                 `json:"conversionError,omitempty"`
}

func (a *App) productView(p domain.Product, price func(float64) string) productView {
	v := productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Barcode:     p.Barcode,
		ImageURL:    a.URLs.Image(p.ImageURL),
		ModelStatus: p.ModelStatus,
		ModelURL:    p.ModelURL,
		Preview:     p.PreviewEligible(),
	}
	if price != nil {
		v.PriceLabel = price(p.Price)
	}
	if v.Preview {
		v.ViewerURL = a.URLs.Viewer(p.ID)
	}
	job, _ := a.Tracker.Job(p.ID)
	v.Conversion = job.State
	v.ConversionNote = job.ErrorMessage
	return v
}

func (a *App) priceFormatter(r *http.Request) func(float64) string {
	if a.Settings == nil {
		return nil
	}
	s, err := a.Settings.Load(r.Context())
	if err != nil {
		a.Logger.Warn().Err(err).Msg("load settings for price formatting")
		return nil
	}
	return s.FormatPrice
}

// ListProducts serves one page of the cached catalog. Filtering always runs
// before pagination so totals describe the filtered set.
func (a *App) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("refresh") == "true" {
		if err := a.Catalog.Refresh(r.Context()); err != nil {
			a.fail(w, err, "failed to load products")
			return
		}
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	view := a.Catalog.View(catalog.ViewQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     page,
		PageSize: limit,
	})
	snap := a.Catalog.Snapshot()
	price := a.priceFormatter(r)
	items := make([]productView, 0, len(view.Items))
	for _, p := range view.Items {
		items = append(items, a.productView(p, price))
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":        items,
		"page":         view.Page,
		"page_size":    view.PageSize,
		"total_items":  view.TotalItems,
		"total_pages":  view.TotalPages,
		"error":        snap.Error,
		"refreshed_at": snap.RefreshedAt,
	})
}

func (a *App) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	input := domain.ProductInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Category:    r.FormValue("category"),
		Barcode:     r.FormValue("barcode"),
		ModelURL:    r.FormValue("modelUrl"),
		ModelStatus: domain.ModelStatus(r.FormValue("modelStatus")),
	}
	image, err := formUpload(r, "image", domain.AssetKindImage)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	model, err := formUpload(r, "model", domain.AssetKindModel)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	product, err := a.Catalog.Create(r.Context(), catalog.CreateRequest{Input: input, Image: image, Model: model})
	if err != nil {
		a.fail(w, err, "failed to create product")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"product": a.productView(product, nil)})
}

func (a *App) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := a.Catalog.Remove(r.Context(), id, confirmed); err != nil {
		a.fail(w, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProduct backs the 3D viewer page.
func (a *App) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.Catalog.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err, "failed to load product")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"product": a.productView(product, a.priceFormatter(r))})
}

func formUpload(r *http.Request, field string, kind domain.AssetKind) (*domain.Upload, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &domain.Upload{
		Kind:        kind,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func assetName(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return fallback
	}
	return name
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "product"
	}
	return out
}

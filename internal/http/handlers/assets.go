package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"foodviz/internal/api"
	"foodviz/internal/catalog"
	"foodviz/internal/domain"
	"foodviz/internal/export"
	"foodviz/internal/media"
	"foodviz/pkg/zip"
)

const (
	defaultQRSize  = 256
	thumbnailSize  = 320
	maxImportBytes = 8 << 20
)

// ProductQR renders the viewer link as a PNG so a phone can open the AR view.
func (a *App) ProductQR(w http.ResponseWriter, r *http.Request) {
	product, err := a.Catalog.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err, "failed to load product")
		return
	}
	if !product.PreviewEligible() {
		a.error(w, http.StatusConflict, "model_not_ready", "3D model is not available yet")
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 64 || size > 1024 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(a.URLs.Viewer(product.ID), qrcode.Medium, size)
	if err != nil {
		a.fail(w, fmt.Errorf("qr: %w", err), "failed to render qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ProductBundle downloads the product's model and image from the backend and
// returns them, with a thumbnail, as one archive.
func (a *App) ProductBundle(w http.ResponseWriter, r *http.Request) {
	product, err := a.Catalog.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err, "failed to load product")
		return
	}
	name := slug(product.Name)
	var assets []zip.Asset

	if product.PreviewEligible() {
		data, mime, err := a.Client.Download(r.Context(), product.ModelURL)
		if err != nil {
			a.fail(w, err, "failed to download model")
			return
		}
		assets = append(assets, zip.Asset{Filename: name + "-" + assetName(product.ModelURL, "model.glb"), MIME: mime, Data: data})
	}

	imageURL := a.URLs.Image(product.ImageURL)
	if imageURL != catalog.PlaceholderImage {
		data, mime, err := a.Client.Download(r.Context(), imageURL)
		switch {
		case err != nil:
			a.Logger.Warn().Err(err).Str("product_id", product.ID).Msg("bundle: image download failed")
		default:
			assets = append(assets, zip.Asset{Filename: name + "-" + assetName(imageURL, "image"), MIME: mime, Data: data})
			if thumb, err := media.Thumbnail(data, thumbnailSize, thumbnailSize); err == nil {
				assets = append(assets, zip.Asset{Filename: name + "-thumbnail.png", MIME: "image/png", Data: thumb})
			}
		}
	}

	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "product has no downloadable assets")
		return
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.fail(w, err, "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// ExportProducts writes the filtered catalog as a spreadsheet.
func (a *App) ExportProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := catalog.Filter(a.Catalog.Snapshot().Products, q.Get("category"), q.Get("search"))
	data, err := export.ProductsXLSX(products, a.URLs.Image)
	if err != nil {
		a.fail(w, err, "failed to export products")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=products.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type importResult struct {
	Created []string       `json:"created"`
	Errors  []importRowErr `json:"errors"`
}

type importRowErr struct {
	Row     int    `json:"row,omitempty"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// ImportProducts creates one product per spreadsheet row. Rows that fail do
// not stop the rest of the import.
func (a *App) ImportProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file required")
		return
	}
	defer file.Close()

	inputs, rowErrs, err := export.ParseProducts(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	result := importResult{Created: []string{}, Errors: []importRowErr{}}
	for _, re := range rowErrs {
		result.Errors = append(result.Errors, importRowErr{Row: re.Row, Message: re.Err.Error()})
	}
	for _, in := range inputs {
		product, err := a.Catalog.Create(r.Context(), catalog.CreateRequest{Input: in, DeferRefresh: true})
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				a.fail(w, err, "import aborted")
				return
			}
			var fe *domain.FieldError
			msg := api.MessageOf(err, "failed to create product")
			if errors.As(err, &fe) {
				msg = fe.Error()
			}
			a.Logger.Warn().Err(err).Str("name", in.Name).Msg("import: row rejected")
			result.Errors = append(result.Errors, importRowErr{Name: in.Name, Message: msg})
			continue
		}
		result.Created = append(result.Created, product.ID)
	}
	if len(result.Created) > 0 {
		if err := a.Catalog.Refresh(r.Context()); err != nil {
			a.Logger.Warn().Err(err).Msg("import: refresh after import failed")
		}
	}
	status := http.StatusOK
	if len(result.Created) > 0 {
		status = http.StatusCreated
	}
	a.json(w, status, result)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"foodviz/internal/domain"
)

// ProductQuery maps onto the listing endpoint's query parameters. Zero values are omitted.
type ProductQuery struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if c := strings.TrimSpace(q.Category); c != "" {
		v.Set("category", c)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ListProducts returns the backend's product list for the query.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/admin/products", query: q.values(), auth: true})
	if err != nil {
		return nil, err
	}
	products, err := decodeList[domain.Product](raw, "products")
	if err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct submits the product form as multipart data. image may be nil.
func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput, image *domain.Upload) (domain.Product, error) {
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}
	body, contentType, err := productForm(in, image)
	if err != nil {
		return domain.Product{}, err
	}
	raw, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/admin/products",
		body:        body,
		contentType: contentType,
		auth:        true,
	})
	if err != nil {
		return domain.Product{}, err
	}
	product, err := decodeOne[domain.Product](raw, "product")
	if err != nil {
		return domain.Product{}, err
	}
	c.logger.Info().Str("product_id", product.ID).Str("name", product.Name).Msg("api: product created")
	return product, nil
}

// DeleteProduct removes a product on the backend.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.FieldError{Field: "id", Message: "product id is required"}
	}
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/admin/products/" + url.PathEscape(id), auth: true})
	return err
}

func productForm(in domain.ProductInput, image *domain.Upload) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fields := []struct{ name, value string }{
		{"name", strings.TrimSpace(in.Name)},
		{"description", in.Description},
		{"price", strings.TrimSpace(in.Price)},
		{"category", in.Category},
		{"barcode", in.Barcode},
	}
	if in.ModelURL != "" {
		fields = append(fields, struct{ name, value string }{"modelUrl", in.ModelURL})
	}
	if in.ModelStatus != "" {
		fields = append(fields, struct{ name, value string }{"modelStatus", string(in.ModelStatus)})
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("api: write field %s: %w", f.name, err)
		}
	}
	if !image.Empty() {
		if err := writeFile(mw, "image", image); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("api: close multipart: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}

func writeFile(mw *multipart.Writer, field string, upload *domain.Upload) error {
	filename := upload.Filename
	if filename == "" {
		filename = field
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(upload.Data)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("api: create %s part: %w", field, err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return fmt.Errorf("api: write %s part: %w", field, err)
	}
	return nil
}

// decodeList accepts either {"<key>": [...]} or a bare array.
func decodeList[T any](raw []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("api: decode response: %w", err)
		}
		return items, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("api: decode response: %w", err)
	}
	items := []T{}
	if body, ok := wrapped[key]; ok && !bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("api: decode %s: %w", key, err)
		}
	}
	return items, nil
}

// decodeOne accepts either {"<key>": {...}} or the bare object.
func decodeOne[T any](raw []byte, key string) (T, error) {
	var zero T
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return zero, fmt.Errorf("api: decode response: %w", err)
	}
	body := json.RawMessage(raw)
	if inner, ok := wrapped[key]; ok && len(inner) > 0 && inner[0] == '{' {
		body = inner
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, fmt.Errorf("api: decode response: %w", err)
	}
	return out, nil
}

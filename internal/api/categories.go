package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"foodviz/internal/domain"
)

// ListCategories returns every category with its server-computed product count.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/admin/categories", auth: true})
	if err != nil {
		return nil, err
	}
	return decodeList[domain.Category](raw, "categories")
}

// CreateCategory adds a category; names are unique on the backend.
func (c *Client) CreateCategory(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return domain.Category{}, &domain.FieldError{Field: "name", Message: "category name is required"}
	}
	req, err := jsonRequest(http.MethodPost, "/admin/categories", in, true)
	if err != nil {
		return domain.Category{}, err
	}
	raw, err := c.do(ctx, req)
	if err != nil {
		return domain.Category{}, err
	}
	return decodeOne[domain.Category](raw, "category")
}

// DeleteCategory removes a category by id.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &domain.FieldError{Field: "id", Message: "category id is required"}
	}
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/admin/categories/" + url.PathEscape(id), auth: true})
	return err
}

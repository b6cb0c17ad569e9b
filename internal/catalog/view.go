package catalog

import (
	"strings"

	"foodviz/internal/domain"
)

// DefaultPageSize matches the product grid of the dashboard.
const DefaultPageSize = 10

// AllCategories disables category filtering.
const AllCategories = "all"

// ViewQuery selects a page of the cached snapshot.
type ViewQuery struct {
	Category string
	Search   string
	Page     int
	PageSize int
}

// Page is the result of View. Totals describe the filtered set, not the cache.
type Page struct {
	Items      []domain.Product `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalItems int              `json:"total_items"`
	TotalPages int              `json:"total_pages"`
}

// View filters the snapshot and then paginates the filtered result. Search is
// a case-insensitive substring of the name; category must match exactly.
func (c *Catalog) View(q ViewQuery) Page {
	return Paginate(Filter(c.Snapshot().Products, q.Category, q.Search), q.Page, q.PageSize)
}

// Filter keeps products matching both the category and the name search.
func Filter(products []domain.Product, category, search string) []domain.Product {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !isAllCategories(category) && p.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Paginate slices an already filtered list. Out-of-range pages are clamped.
func Paginate(items []domain.Product, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	slice := make([]domain.Product, end-start)
	copy(slice, items[start:end])
	return Page{
		Items:      slice,
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: pages,
	}
}

func isAllCategories(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, AllCategories)
}

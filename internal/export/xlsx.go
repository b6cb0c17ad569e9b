// Package export writes catalog snapshots to spreadsheets and reads product
// sheets back for bulk creation.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"foodviz/internal/analytics"
	"foodviz/internal/domain"
)

const (
	productsSheet   = "Products"
	categoriesSheet = "Categories"
)

var productHeader = []any{"ID", "Name", "Category", "Price", "Barcode", "Description", "Model Status", "Model URL", "Image URL"}

// ImageResolver turns stored image references into absolute links.
type ImageResolver func(ref string) string

// ProductsXLSX renders one row per product plus a per-category summary sheet.
func ProductsXLSX(products []domain.Product, resolve ImageResolver) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", productsSheet); err != nil {
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("export: style: %w", err)
	}

	if err := f.SetSheetRow(productsSheet, "A1", &productHeader); err != nil {
		return nil, fmt.Errorf("export: header: %w", err)
	}
	if err := f.SetRowStyle(productsSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}
	for i, p := range products {
		image := p.ImageURL
		if resolve != nil {
			image = resolve(p.ImageURL)
		}
		row := []any{p.ID, p.Name, p.Category, p.Price, p.Barcode, p.Description, string(p.ModelStatus), p.ModelURL, image}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("export: cell name: %w", err)
		}
		if err := f.SetSheetRow(productsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(productsSheet, "B", "B", 28); err != nil {
		return nil, fmt.Errorf("export: column width: %w", err)
	}

	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return nil, fmt.Errorf("export: add sheet: %w", err)
	}
	if err := f.SetSheetRow(categoriesSheet, "A1", &[]any{"Category", "Products"}); err != nil {
		return nil, fmt.Errorf("export: header: %w", err)
	}
	if err := f.SetRowStyle(categoriesSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}
	stats := analytics.Compute(products, time.Now())
	for i, c := range analytics.Ranked(stats.ByCategory) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(categoriesSheet, cell, &[]any{c.Category, c.Count}); err != nil {
			return nil, fmt.Errorf("export: category row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// RowError reports a sheet row that could not be turned into a product.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// ParseProducts reads the first sheet of a workbook. Columns are located by
// header name (Name, Category, Price, Barcode, Description) so the sheet
// written by ProductsXLSX can be edited and imported again. Invalid rows are
// reported and skipped.
func ParseProducts(r io.Reader) ([]domain.ProductInput, []RowError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("export: read workbook: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("export: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("export: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("export: read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, nil, fmt.Errorf("export: header row must contain a Name column")
	}
	get := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []domain.ProductInput
	var bad []RowError
	for i, row := range rows[1:] {
		if len(strings.TrimSpace(strings.Join(row, ""))) == 0 {
			continue
		}
		in := domain.ProductInput{
			Name:        get(row, "name"),
			Category:    get(row, "category"),
			Price:       normalizePrice(get(row, "price")),
			Barcode:     get(row, "barcode"),
			Description: get(row, "description"),
		}
		if err := in.Validate(); err != nil {
			bad = append(bad, RowError{Row: i + 2, Err: err})
			continue
		}
		out = append(out, in)
	}
	return out, bad, nil
}

// normalizePrice strips currency symbols and thousands separators.
func normalizePrice(raw string) string {
	raw = strings.TrimSpace(raw)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, raw)
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return raw
	}
	return cleaned
}

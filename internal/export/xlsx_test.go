package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"foodviz/internal/domain"
)

func TestProductsXLSXRoundTrip(t *testing.T) {
	products := []domain.Product{
		{ID: "p1", Name: "Zinger Burger", Category: "Fast Food", Price: 5.5, Barcode: "111", ImageURL: "/uploads/z.png", ModelStatus: domain.ModelStatusCompleted, ModelURL: "https://x/z.glb"},
		{ID: "p2", Name: "Chow Mein", Category: "Chinese", Price: 6, ModelStatus: domain.ModelStatusPending},
		{ID: "p3", Name: "Fries", Category: "Fast Food", Price: 2},
	}
	data, err := ProductsXLSX(products, func(ref string) string {
		if ref == "" {
			return "placeholder"
		}
		return "https://backend" + ref
	})
	if err != nil {
		t.Fatalf("ProductsXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(productsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[1][1] != "Zinger Burger" || rows[1][8] != "https://backend/uploads/z.png" {
		t.Fatalf("row 2 = %v", rows[1])
	}
	if rows[2][8] != "placeholder" {
		t.Fatalf("row 3 image = %q", rows[2][8])
	}

	cats, err := f.GetRows(categoriesSheet)
	if err != nil {
		t.Fatalf("GetRows categories: %v", err)
	}
	if len(cats) != 3 || cats[1][0] != "Fast Food" || cats[1][1] != "2" {
		t.Fatalf("categories = %v", cats)
	}

	inputs, bad, err := ParseProducts(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseProducts: %v", err)
	}
	if len(bad) != 0 {
		t.Fatalf("unexpected row errors: %v", bad)
	}
	if len(inputs) != 3 || inputs[0].Name != "Zinger Burger" || inputs[0].Price != "5.5" || inputs[0].Category != "Fast Food" {
		t.Fatalf("inputs = %+v", inputs)
	}
}

func TestParseProductsReportsBadRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Name", "Category", "Price"},
		{"Biryani", "Desi Food", "Rs 1,200"},
		{"", "Desi Food", "5"},
		{},
		{"Tea", "", "1"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	inputs, bad, err := ParseProducts(buf)
	if err != nil {
		t.Fatalf("ParseProducts: %v", err)
	}
	if len(inputs) != 1 || inputs[0].Price != "1200" {
		t.Fatalf("inputs = %+v", inputs)
	}
	if len(bad) != 2 || bad[0].Row != 3 || bad[1].Row != 5 {
		t.Fatalf("bad = %+v", bad)
	}
}

func TestParseProductsRequiresNameColumn(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Title", "Price"}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	if _, _, err := ParseProducts(buf); err == nil {
		t.Fatalf("expected error for missing Name column")
	}
}

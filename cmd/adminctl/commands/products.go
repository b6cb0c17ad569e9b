package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v3"

	"foodviz/internal/catalog"
	"foodviz/internal/domain"
	"foodviz/internal/export"
	"foodviz/internal/settings"
)

// ProductListAction loads the catalog and prints one page of it.
func ProductListAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	filters := catalog.Filters{Category: cmd.String("category"), Search: cmd.String("search")}
	if err := app.Catalog.Load(ctx, filters); err != nil {
		return describe(err, "list products")
	}
	page := app.Catalog.View(catalog.ViewQuery{
		Category: filters.Category,
		Search:   filters.Search,
		Page:     int(cmd.Int("page")),
		PageSize: int(cmd.Int("limit")),
	})
	prefs, _ := app.Settings.Load(ctx)
	return renderProducts(os.Stdout, page, prefs)
}

func renderProducts(w io.Writer, page catalog.Page, prefs settings.Settings) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Category", "Price", "Model", "Preview")
	for _, p := range page.Items {
		preview := "-"
		if p.PreviewEligible() {
			preview = "yes"
		}
		if err := table.Append(p.ID, p.Name, p.Category, prefs.FormatPrice(p.Price), string(p.ModelStatus), preview); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "page %d/%d, %d products\n", page.Page, max(page.TotalPages, 1), page.TotalItems)
	return nil
}

// ProductShowAction prints a single product and optionally writes a QR code
// pointing at its 3D viewer.
func ProductShowAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	p, err := app.Catalog.FindByID(ctx, cmd.String("id"))
	if err != nil {
		return describe(err, "show product")
	}
	fmt.Printf("%s  %s\n", p.ID, p.Name)
	fmt.Printf("  category:  %s\n", p.Category)
	fmt.Printf("  price:     %s\n", strconv.FormatFloat(p.Price, 'f', 2, 64))
	fmt.Printf("  image:     %s\n", app.URLs.Image(p.ImageURL))
	fmt.Printf("  model:     %s %s\n", p.ModelStatus, p.ModelURL)
	if !p.PreviewEligible() {
		return nil
	}
	viewer := app.URLs.Viewer(p.ID)
	fmt.Printf("  viewer:    %s\n", viewer)
	if out := cmd.String("qr"); out != "" {
		if err := qrcode.WriteFile(viewer, qrcode.Medium, 256, out); err != nil {
			return fmt.Errorf("write qr: %w", err)
		}
		fmt.Printf("  qr:        %s\n", out)
	}
	return nil
}

// ProductCreateAction submits a product with optional image and 3D model files.
func ProductCreateAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	image, err := loadUpload(cmd.String("image"), domain.AssetKindImage)
	if err != nil {
		return err
	}
	model, err := loadUpload(cmd.String("model"), domain.AssetKindModel)
	if err != nil {
		return err
	}
	p, err := app.Catalog.Create(ctx, catalog.CreateRequest{
		Input: domain.ProductInput{
			Name:        cmd.String("name"),
			Description: cmd.String("description"),
			Price:       cmd.String("price"),
			Category:    cmd.String("category"),
			Barcode:     cmd.String("barcode"),
		},
		Image: image,
		Model: model,
	})
	if err != nil {
		return describe(err, "create product")
	}
	fmt.Printf("created %s (%s), model %s\n", p.ID, p.Name, p.ModelStatus)
	return nil
}

// ProductDeleteAction deletes a product; --yes is the confirmation.
func ProductDeleteAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	id := cmd.String("id")
	if err := app.Catalog.Remove(ctx, id, cmd.Bool("yes")); err != nil {
		return describe(err, "delete product")
	}
	fmt.Printf("deleted %s\n", id)
	return nil
}

// ProductWatchAction re-renders the catalog on every poll until interrupted.
func ProductWatchAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	interval := app.Config.PollInterval
	if secs := cmd.Int("interval"); secs > 0 {
		interval = time.Duration(secs) * time.Second
	}
	prefs, _ := app.Settings.Load(ctx)
	query := catalog.ViewQuery{Category: cmd.String("category"), Search: cmd.String("search"), PageSize: int(cmd.Int("limit"))}
	app.Catalog.AddObserver(func(products []domain.Product, _ time.Time) {
		fmt.Printf("\n%s\n", time.Now().Format("15:04:05"))
		page := catalog.Paginate(catalog.Filter(products, query.Category, query.Search), 1, query.PageSize)
		_ = renderProducts(os.Stdout, page, prefs)
	})

	sub, err := app.Catalog.Poll(ctx, catalog.Filters{Category: query.Category, Search: query.Search}, interval)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		sub.Stop()
		return nil
	case <-sub.Done():
		return describe(sub.Err(), "watch products")
	}
}

// ProductExportAction writes the catalog to an xlsx file.
func ProductExportAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	filters := catalog.Filters{Category: cmd.String("category"), Search: cmd.String("search")}
	if err := app.Catalog.Load(ctx, filters); err != nil {
		return describe(err, "export products")
	}
	products := catalog.Filter(app.Catalog.Snapshot().Products, filters.Category, filters.Search)
	data, err := export.ProductsXLSX(products, app.URLs.Image)
	if err != nil {
		return err
	}
	out := cmd.String("out")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("exported %d products to %s\n", len(products), out)
	return nil
}

// ProductImportAction creates products from an xlsx sheet.
func ProductImportAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	f, err := os.Open(cmd.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()

	inputs, rowErrs, err := export.ParseProducts(f)
	if err != nil {
		return err
	}
	for _, re := range rowErrs {
		fmt.Fprintf(os.Stderr, "skipped %v\n", re)
	}
	if cmd.Bool("dry-run") {
		for _, in := range inputs {
			fmt.Printf("would create %s (%s, %s)\n", in.Name, in.Category, in.Price)
		}
		return nil
	}
	created := 0
	for _, in := range inputs {
		p, err := app.Catalog.Create(ctx, catalog.CreateRequest{Input: in, DeferRefresh: true})
		if err != nil {
			if err := describe(err, "import "+in.Name); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			continue
		}
		created++
		fmt.Printf("created %s (%s)\n", p.ID, p.Name)
	}
	fmt.Printf("%d created, %d skipped\n", created, len(rowErrs)+len(inputs)-created)
	return nil
}

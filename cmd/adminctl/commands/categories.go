package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"foodviz/internal/analytics"
	"foodviz/internal/domain"
)

// CategoryListAction prints categories with their product counts.
func CategoryListAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	categories, err := app.Client.ListCategories(ctx)
	if err != nil {
		return describe(err, "list categories")
	}
	return renderCategories(categories)
}

func renderCategories(categories []domain.Category) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Products", "Description")
	for _, c := range categories {
		if err := table.Append(c.ID, c.Name, strconv.Itoa(c.Count), c.Description); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	summary := analytics.Summarize(categories)
	fmt.Printf("%d categories, %d products, %s per category\n", summary.Categories, summary.TotalProducts, summary.AveragePerCategory)
	return nil
}

// CategoryCreateAction adds a category and prints the refreshed list.
func CategoryCreateAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	created, err := app.Client.CreateCategory(ctx, domain.CategoryInput{
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
	})
	if err != nil {
		return describe(err, "create category")
	}
	fmt.Printf("created %s\n", created.Name)
	categories, err := app.Client.ListCategories(ctx)
	if err != nil {
		return describe(err, "list categories")
	}
	return renderCategories(categories)
}

// CategoryDeleteAction removes a category; --yes is the confirmation.
func CategoryDeleteAction(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return describe(domain.ErrConfirmationRequired, "delete category")
	}
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	id := cmd.String("id")
	if err := app.Client.DeleteCategory(ctx, id); err != nil {
		return describe(err, "delete category")
	}
	fmt.Printf("deleted %s\n", id)
	return nil
}

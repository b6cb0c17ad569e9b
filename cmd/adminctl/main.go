package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"foodviz/cmd/adminctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idFlag := func() cli.Flag { return &cli.StringFlag{Name: "id", Usage: "product id", Required: true} }
	categoryFlag := func() cli.Flag { return &cli.StringFlag{Name: "category", Usage: "category name, \"all\" for every category"} }
	searchFlag := func() cli.Flag { return &cli.StringFlag{Name: "search", Usage: "case-insensitive name search"} }
	limitFlag := func() cli.Flag { return &cli.IntFlag{Name: "limit", Usage: "products per page", Value: 10} }
	yesFlag := func() cli.Flag { return &cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "confirm the deletion"} }
	intervalFlag := func() cli.Flag { return &cli.IntFlag{Name: "interval", Usage: "poll interval in seconds (default POLL_INTERVAL_SECONDS)"} }

	app := &cli.Command{
		Name:  "adminctl",
		Usage: "operate the food catalog and its 3D model conversions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "environment file", Value: ".env"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log requests to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "log in and store the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "password (or FOODVIZ_PASSWORD)"},
				},
				Action: commands.LoginAction,
			},
			{Name: "logout", Usage: "forget the stored session", Action: commands.LogoutAction},
			{Name: "whoami", Usage: "show the stored operator", Action: commands.WhoamiAction},
			{
				Name:  "products",
				Usage: "manage products",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list products",
						Flags:  []cli.Flag{categoryFlag(), searchFlag(), limitFlag(), &cli.IntFlag{Name: "page", Value: 1}},
						Action: commands.ProductListAction,
					},
					{
						Name:   "show",
						Usage:  "show one product and its 3D viewer link",
						Flags:  []cli.Flag{idFlag(), &cli.StringFlag{Name: "qr", Usage: "write a QR code PNG of the viewer link"}},
						Action: commands.ProductShowAction,
					},
					{
						Name:  "create",
						Usage: "create a product",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Required: true},
							&cli.StringFlag{Name: "price", Required: true},
							&cli.StringFlag{Name: "category", Required: true},
							&cli.StringFlag{Name: "description"},
							&cli.StringFlag{Name: "barcode"},
							&cli.StringFlag{Name: "image", Usage: "path to a product photo"},
							&cli.StringFlag{Name: "model", Usage: "path to a ready 3D model (.glb)"},
						},
						Action: commands.ProductCreateAction,
					},
					{
						Name:   "delete",
						Usage:  "delete a product",
						Flags:  []cli.Flag{idFlag(), yesFlag()},
						Action: commands.ProductDeleteAction,
					},
					{
						Name:   "watch",
						Usage:  "poll the catalog and print it on every refresh",
						Flags:  []cli.Flag{categoryFlag(), searchFlag(), limitFlag(), intervalFlag()},
						Action: commands.ProductWatchAction,
					},
					{
						Name:   "export",
						Usage:  "export products to an xlsx file",
						Flags:  []cli.Flag{categoryFlag(), searchFlag(), &cli.StringFlag{Name: "out", Value: "products.xlsx"}},
						Action: commands.ProductExportAction,
					},
					{
						Name:  "import",
						Usage: "create products from an xlsx file",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "file", Required: true},
							&cli.BoolFlag{Name: "dry-run"},
						},
						Action: commands.ProductImportAction,
					},
				},
			},
			{
				Name:  "categories",
				Usage: "manage categories",
				Commands: []*cli.Command{
					{Name: "list", Usage: "list categories", Action: commands.CategoryListAction},
					{
						Name:  "create",
						Usage: "create a category",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Required: true},
							&cli.StringFlag{Name: "description"},
						},
						Action: commands.CategoryCreateAction,
					},
					{
						Name:   "delete",
						Usage:  "delete a category",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "id", Required: true}, yesFlag()},
						Action: commands.CategoryDeleteAction,
					},
				},
			},
			{
				Name:  "convert",
				Usage: "convert a product image into a 3D model",
				Commands: []*cli.Command{
					{
						Name:   "start",
						Usage:  "queue a conversion",
						Flags:  []cli.Flag{idFlag(), &cli.StringFlag{Name: "image", Usage: "image URL (defaults to the product image)"}},
						Action: commands.ConvertStartAction,
					},
					{
						Name:  "watch",
						Usage: "queue a conversion and wait for the model",
						Flags: []cli.Flag{
							idFlag(),
							&cli.StringFlag{Name: "image", Usage: "image URL (defaults to the product image)"},
							&cli.DurationFlag{Name: "timeout", Value: 15 * time.Minute},
							intervalFlag(),
						},
						Action: commands.ConvertWatchAction,
					},
				},
			},
			{
				Name:   "upload",
				Usage:  "upload a 3D model file and print its URL",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "file", Required: true}},
				Action: commands.UploadAction,
			},
			{
				Name:   "analytics",
				Usage:  "show catalog figures",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "backend", Usage: "also print the backend analytics document"}},
				Action: commands.AnalyticsAction,
			},
			{
				Name:  "settings",
				Usage: "show or change local preferences",
				Commands: []*cli.Command{
					{Name: "show", Action: commands.SettingsShowAction},
					{
						Name: "set",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "notifications"},
							&cli.BoolFlag{Name: "dark-mode"},
							&cli.BoolFlag{Name: "auto-save"},
							&cli.StringFlag{Name: "language"},
							&cli.StringFlag{Name: "currency"},
						},
						Action: commands.SettingsSetAction,
					},
					{Name: "reset", Action: commands.SettingsResetAction},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

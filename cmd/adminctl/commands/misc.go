package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"foodviz/internal/analytics"
	"foodviz/internal/catalog"
	"foodviz/internal/domain"
	"foodviz/internal/settings"
)

// UploadAction pushes a file to the backend's cloud storage and prints its URL.
func UploadAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	upload, err := loadUpload(cmd.String("file"), domain.AssetKindModel)
	if err != nil {
		return err
	}
	if upload.Empty() {
		return fmt.Errorf("upload: file is empty")
	}
	url, err := app.Client.UploadAsset(ctx, upload)
	if err != nil {
		return describe(err, "upload")
	}
	fmt.Println(url)
	return nil
}

// AnalyticsAction prints dashboard figures computed from a fresh catalog load.
func AnalyticsAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	if err := app.Catalog.Load(ctx, catalog.Filters{}); err != nil {
		return describe(err, "analytics")
	}
	stats := analytics.Compute(app.Catalog.Snapshot().Products, time.Now())

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	rows := [][]string{
		{"Total products", strconv.Itoa(stats.TotalProducts)},
		{"3D models ready", strconv.Itoa(stats.CompletedModels)},
		{"Processing", strconv.Itoa(stats.ProcessingOnly)},
		{"Pending", strconv.Itoa(stats.PendingModels)},
		{"Failed", strconv.Itoa(stats.FailedModels)},
		{"Completion", strconv.FormatFloat(analytics.CompletionRate(stats), 'f', 1, 64) + "%"},
	}
	for _, c := range analytics.Ranked(stats.ByCategory) {
		rows = append(rows, []string{"  " + c.Category, strconv.Itoa(c.Count)})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if cmd.Bool("backend") {
		remote, err := app.Client.Analytics(ctx)
		if err != nil {
			return describe(err, "backend analytics")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(remote)
	}
	return nil
}

// SettingsShowAction prints the stored preferences.
func SettingsShowAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	s, err := app.Settings.Load(ctx)
	if err != nil {
		return err
	}
	printSettings(s)
	return nil
}

// SettingsSetAction updates only the flags that were given.
func SettingsSetAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	var patch settings.Patch
	if cmd.IsSet("notifications") {
		v := cmd.Bool("notifications")
		patch.Notifications = &v
	}
	if cmd.IsSet("dark-mode") {
		v := cmd.Bool("dark-mode")
		patch.DarkMode = &v
	}
	if cmd.IsSet("auto-save") {
		v := cmd.Bool("auto-save")
		patch.AutoSave = &v
	}
	if cmd.IsSet("language") {
		v := cmd.String("language")
		patch.Language = &v
	}
	if cmd.IsSet("currency") {
		v := cmd.String("currency")
		patch.Currency = &v
	}
	s, err := app.Settings.Update(ctx, patch)
	if err != nil {
		return describe(err, "settings")
	}
	printSettings(s)
	return nil
}

// SettingsResetAction restores defaults.
func SettingsResetAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	if err := app.Settings.Reset(ctx); err != nil {
		return err
	}
	printSettings(settings.Defaults())
	return nil
}

func printSettings(s settings.Settings) {
	fmt.Printf("notifications: %t\n", s.Notifications)
	fmt.Printf("dark mode:     %t\n", s.DarkMode)
	fmt.Printf("auto save:     %t\n", s.AutoSave)
	fmt.Printf("language:      %s\n", s.Language)
	fmt.Printf("currency:      %s (%s)\n", s.Currency, s.FormatPrice(1234.5))
}

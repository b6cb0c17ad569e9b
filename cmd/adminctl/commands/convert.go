package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"foodviz/internal/catalog"
	"foodviz/internal/domain"
)

// ConvertStartAction queues a 3D conversion. Without --image the product's
// own image is sent.
func ConvertStartAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	productID := cmd.String("id")
	imageURL, err := conversionImage(ctx, app, productID, cmd.String("image"))
	if err != nil {
		return err
	}
	job, err := app.Tracker.Start(ctx, productID, imageURL)
	if err != nil {
		return describe(err, "start conversion")
	}
	fmt.Printf("conversion for %s is %s; run `adminctl convert watch --id %s` to follow it\n", productID, job.State, productID)
	return nil
}

// ConvertWatchAction queues a conversion and follows the catalog until the
// model is ready, the job fails, or --timeout elapses.
func ConvertWatchAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	productID := cmd.String("id")
	imageURL, err := conversionImage(ctx, app, productID, cmd.String("image"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	done := make(chan domain.ConversionJob, 1)
	app.Catalog.AddObserver(func(products []domain.Product, issuedAt time.Time) {
		app.Tracker.Observe(ctx, products, issuedAt)
		job, _ := app.Tracker.Job(productID)
		fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), job.State)
		if job.State == domain.ConversionSucceeded || job.State == domain.ConversionFailed {
			select {
			case done <- job:
			default:
			}
		}
	})

	if _, err := app.Tracker.Start(ctx, productID, imageURL); err != nil {
		return describe(err, "start conversion")
	}

	interval := app.Config.PollInterval
	if secs := cmd.Int("interval"); secs > 0 {
		interval = time.Duration(secs) * time.Second
	}
	sub, err := app.Catalog.Poll(ctx, catalog.Filters{Search: productID}, interval)
	if err != nil {
		return err
	}
	defer sub.Stop()

	select {
	case job := <-done:
		if job.State == domain.ConversionFailed {
			return fmt.Errorf("conversion failed: %s: %w", job.ErrorMessage, domain.ErrConversionFailed)
		}
		fmt.Printf("model ready: %s\n", job.ModelURL)
		fmt.Printf("viewer: %s\n", app.URLs.Viewer(productID))
		return nil
	case <-sub.Done():
		return describe(sub.Err(), "watch conversion")
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("conversion still running after %s", cmd.Duration("timeout"))
		}
		return nil
	}
}

func conversionImage(ctx context.Context, app *AppContext, productID, imageURL string) (string, error) {
	if imageURL != "" {
		return imageURL, nil
	}
	p, err := app.Catalog.FindByID(ctx, productID)
	if err != nil {
		return "", describe(err, "load product")
	}
	if p.ImageURL == "" {
		return "", fmt.Errorf("product %s has no image, pass --image", productID)
	}
	return app.URLs.Image(p.ImageURL), nil
}

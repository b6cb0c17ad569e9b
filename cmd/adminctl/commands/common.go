package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"foodviz/internal/api"
	"foodviz/internal/catalog"
	"foodviz/internal/conversion"
	"foodviz/internal/domain"
	"foodviz/internal/infra"
	"foodviz/internal/session"
	"foodviz/internal/settings"
)

// AppContext holds what every command needs to talk to the backend.
type AppContext struct {
	Config   *infra.Config
	Logger   infra.Logger
	Sessions session.Store
	Client   *api.Client
	Catalog  *catalog.Catalog
	Tracker  *conversion.Tracker
	Settings *settings.Store
	URLs     catalog.URLs
}

// NewAppContext loads configuration and builds the backend client.
func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	if envFile := cmd.String("env"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := infra.NewCLILogger(cfg.AppEnv, cmd.Bool("verbose"))

	sessions, err := session.NewFileStore(cfg.SessionPath)
	if err != nil {
		return nil, err
	}
	prefs, err := settings.NewStore(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(api.Options{
		BaseURL:        cfg.APIBaseURL,
		Session:        sessions,
		Logger:         &logger,
		RequestTimeout: cfg.HTTPClientTimeout,
	})
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(catalog.Options{Source: client, Logger: &logger, ImageMaxDimension: cfg.ImageMaxDimension})
	if err != nil {
		return nil, err
	}
	tracker, err := conversion.NewTracker(conversion.Options{Starter: client, Logger: &logger})
	if err != nil {
		return nil, err
	}
	return &AppContext{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		Client:   client,
		Catalog:  cat,
		Tracker:  tracker,
		Settings: prefs,
		URLs:     catalog.URLs{AssetBase: cfg.AssetBaseURL, Frontend: cfg.FrontendURL},
	}, nil
}

// describe turns an error into the message shown to the operator.
func describe(err error, action string) error {
	var fe *domain.FieldError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &fe):
		return fmt.Errorf("%s: %s: %s", action, fe.Field, fe.Message)
	case errors.Is(err, domain.ErrUnauthorized):
		return fmt.Errorf("%s: session expired, run `adminctl login`", action)
	case errors.Is(err, domain.ErrConfirmationRequired):
		return fmt.Errorf("%s: pass --yes to confirm", action)
	default:
		return fmt.Errorf("%s: %s", action, api.MessageOf(err, err.Error()))
	}
}

// loadUpload reads a local file into an upload, sniffing the content type.
func loadUpload(path string, kind domain.AssetKind) (*domain.Upload, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &domain.Upload{
		Kind:        kind,
		Filename:    filepath.Base(path),
		ContentType: contentType(path, data),
		Data:        data,
	}, nil
}

func contentType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb":
		return "model/gltf-binary"
	case ".gltf":
		return "model/gltf+json"
	case ".obj":
		return "model/obj"
	case ".usdz":
		return "model/vnd.usdz+zip"
	}
	return http.DetectContentType(data)
}

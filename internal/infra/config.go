package infra

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	APIBaseURL         string
	AssetBaseURL       string
	FrontendURL        string
	SessionPath        string
	SettingsPath       string
	PollInterval       time.Duration
	HTTPClientTimeout  time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	CORSAllowedOrigins []string
	RateLimitPerMin    int
	NATSURL            string
	NATSSubject        string
	GeoIPDBPath        string
	ImageMaxDimension  int
	DefaultLocale      string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	stateDir := getEnv("STATE_DIR", defaultStateDir())

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		APIBaseURL:         strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		AssetBaseURL:       strings.TrimRight(os.Getenv("ASSET_BASE_URL"), "/"),
		FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		SessionPath:        getEnv("SESSION_PATH", filepath.Join(stateDir, "session.json")),
		SettingsPath:       getEnv("SETTINGS_PATH", filepath.Join(stateDir, "settings.json")),
		PollInterval:       time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 20)),
		HTTPClientTimeout:  time.Second * time.Duration(getEnvInt("HTTP_CLIENT_TIMEOUT_SECONDS", 20)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		NATSURL:            os.Getenv("NATS_URL"),
		NATSSubject:        getEnv("NATS_SUBJECT", "foodviz.conversions"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		ImageMaxDimension:  getEnvInt("IMAGE_MAX_DIMENSION", 2048),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("API_BASE_URL is invalid: %w", err)
	}
	if cfg.AssetBaseURL == "" {
		cfg.AssetBaseURL = deriveAssetBaseURL(cfg.APIBaseURL)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{cfg.FrontendURL}
	}

	return cfg, nil
}

// deriveAssetBaseURL strips a trailing /api segment so server-relative image
// paths resolve against the backend's public origin.
func deriveAssetBaseURL(apiBase string) string {
	return strings.TrimSuffix(strings.TrimRight(apiBase, "/"), "/api")
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "foodviz")
	}
	return ".foodviz"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

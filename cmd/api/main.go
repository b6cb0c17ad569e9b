package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"foodviz/internal/api"
	"foodviz/internal/bus"
	"foodviz/internal/catalog"
	"foodviz/internal/conversion"
	"foodviz/internal/domain"
	"foodviz/internal/http/handlers"
	httpapi "foodviz/internal/http/httpapi"
	"foodviz/internal/infra"
	"foodviz/internal/infra/geoip"
	"foodviz/internal/session"
	"foodviz/internal/settings"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	sessions, err := session.NewFileStore(cfg.SessionPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open session store")
	}
	prefs, err := settings.NewStore(cfg.SettingsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open settings store")
	}

	client, err := api.NewClient(api.Options{
		BaseURL:        cfg.APIBaseURL,
		Session:        sessions,
		Logger:         &logger,
		RequestTimeout: cfg.HTTPClientTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build backend client")
	}

	cat, err := catalog.New(catalog.Options{Source: client, Logger: &logger, ImageMaxDimension: cfg.ImageMaxDimension})
	if err != nil {
		logger.Fatal().Err(err).Msg("build catalog")
	}

	trackerOpts := conversion.Options{Starter: client, Logger: &logger}
	if cfg.NATSURL != "" {
		events, err := bus.Connect(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, conversion events will not be published")
		} else {
			defer events.Close()
			trackerOpts.Publisher = events
		}
	}
	tracker, err := conversion.NewTracker(trackerOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("build conversion tracker")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Every successful refresh resolves conversion jobs waiting on the backend.
	cat.AddObserver(func(products []domain.Product, issuedAt time.Time) {
		tracker.Observe(ctx, products, issuedAt)
	})

	poll := &poller{catalog: cat, interval: cfg.PollInterval, logger: logger}
	if s, _ := sessions.Load(ctx); s.Valid() {
		poll.ensure(ctx)
	} else {
		logger.Info().Msg("no stored session, polling starts after login")
	}

	app := handlers.NewApp(cfg, logger, client, cat, tracker, prefs)
	app.OnLogin = func() { poll.ensure(ctx) }

	router := httpapi.NewRouter(app, httpapi.Options{
		Sessions:      sessions,
		AllowedOrigin: cfg.CORSAllowedOrigins,
		LoginLimit:    cfg.RateLimitPerMin,
		DefaultLocale: cfg.DefaultLocale,
		CountryLookup: resolver.Lookup(),
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	logger.Info().Str("backend", cfg.APIBaseURL).Msg("dashboard API starting")
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	poll.stop()
	logger.Info().Msg("server stopped")
}

// poller keeps one catalog subscription alive. Polling ends by itself when the
// backend rejects the session, so a later login starts it again.
type poller struct {
	catalog  *catalog.Catalog
	interval time.Duration
	logger   infra.Logger

	mu  sync.Mutex
	sub *catalog.Subscription
}

func (p *poller) ensure(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub != nil {
		select {
		case <-p.sub.Done():
		default:
			return
		}
	}
	sub, err := p.catalog.Poll(ctx, catalog.Filters{}, p.interval)
	if err != nil {
		p.logger.Error().Err(err).Msg("start catalog polling")
		return
	}
	p.sub = sub
}

func (p *poller) stop() {
	p.mu.Lock()
	sub := p.sub
	p.mu.Unlock()
	if sub != nil {
		sub.Stop()
	}
}

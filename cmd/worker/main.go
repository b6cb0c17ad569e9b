package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"foodviz/internal/api"
	"foodviz/internal/bus"
	"foodviz/internal/catalog"
	"foodviz/internal/conversion"
	"foodviz/internal/domain"
	"foodviz/internal/infra"
	"foodviz/internal/session"
)

// The worker watches the catalog for 3D conversions and publishes every
// lifecycle change to NATS. It reuses the session stored by adminctl login.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := session.NewFileStore(cfg.SessionPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: open session store")
	}
	if s, err := sessions.Load(ctx); err != nil || !s.Valid() {
		logger.Fatal().Err(err).Str("session", cfg.SessionPath).Msg("worker: no stored session, run `adminctl login` first")
	}

	client, err := api.NewClient(api.Options{
		BaseURL:        cfg.APIBaseURL,
		Session:        sessions,
		Logger:         &logger,
		RequestTimeout: cfg.HTTPClientTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: build backend client")
	}

	opts := conversion.Options{Starter: client, Logger: &logger, AdoptProcessing: true}
	var events *bus.Client
	if cfg.NATSURL == "" {
		logger.Warn().Msg("worker: NATS_URL not set, events are only logged")
	} else {
		events, err = bus.Connect(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: nats connection failed")
		}
		opts.Publisher = events
	}
	tracker, err := conversion.NewTracker(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: build tracker")
	}

	cat, err := catalog.New(catalog.Options{Source: client, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: build catalog")
	}
	cat.AddObserver(func(products []domain.Product, issuedAt time.Time) {
		tracker.Observe(ctx, products, issuedAt)
		logger.Debug().Int("products", len(products)).Int("pending", tracker.Pending()).Msg("worker: snapshot observed")
	})

	sub, err := cat.Poll(ctx, catalog.Filters{}, cfg.PollInterval)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: start polling")
	}
	logger.Info().Dur("interval", cfg.PollInterval).Str("subject", cfg.NATSSubject).Msg("worker: watching conversions")

	select {
	case <-ctx.Done():
		sub.Stop()
	case <-sub.Done():
	}

	// Drain the bus before exiting so the last transitions are delivered.
	if events != nil {
		events.Close()
	}
	stop()

	if err := sub.Err(); errors.Is(err, domain.ErrUnauthorized) {
		logger.Error().Msg("worker: session expired, log in again with adminctl")
		os.Exit(1)
	}
	logger.Info().Msg("worker: stopped")
}

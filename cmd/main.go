package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lighterbook/internal/book"
	"lighterbook/internal/config"
	"lighterbook/internal/feed"
	"lighterbook/internal/feed/lighter"
	"lighterbook/internal/logging"
	"lighterbook/internal/registry"
	"lighterbook/internal/server"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "path to YAML config file")
		markets = flag.String("markets", "", "comma-separated market ids (overrides config)")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			os.Stderr.WriteString("config: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = *loaded
	}
	if *markets != "" {
		cfg.Feed.Markets = strings.Split(*markets, ",")
		if err := cfg.Validate(); err != nil {
			os.Stderr.WriteString("config: " + err.Error() + "\n")
			os.Exit(1)
		}
	}

	logger := logging.New(cfg.Logging)
	logger.Info().
		Str("host", cfg.Feed.Host).
		Strs("markets", cfg.Feed.Markets).
		Int("port", cfg.Server.Port).
		Msg("starting lighterbook")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New()
	client := lighter.New(lighter.Config{
		Host:               cfg.Feed.Host,
		Path:               cfg.Feed.Path,
		Markets:            cfg.Feed.Markets,
		HandshakeTimeout:   cfg.Feed.HandshakeTimeout,
		ReconnectBaseDelay: cfg.Feed.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Feed.ReconnectMaxDelay,
		EventBuffer:        cfg.Feed.EventBuffer,
	}, logger)
	srv := server.New(reg, cfg.Server, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Run(ctx) })
	g.Go(func() error { return ingest(ctx, reg, client.Events(), logger) })
	g.Go(func() error { return srv.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("exited with error")
	}
	logger.Info().Msg("goodbye")
}

// ingest applies feed events to the registry. Malformed messages are
// logged and skipped; they never take the ingestion loop down.
func ingest(ctx context.Context, reg *registry.Registry, events <-chan *feed.Event, logger zerolog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			applyEvent(reg, ev, logger)
		}
	}
}

func applyEvent(reg *registry.Registry, ev *feed.Event, logger zerolog.Logger) {
	switch {
	case ev.Snapshot != nil:
		if err := reg.ApplySnapshot(ev.MarketID, ev.Snapshot, ev.Timestamp); err != nil {
			logger.Error().Err(err).Str("market", ev.MarketID).Msg("snapshot rejected")
			return
		}
		logger.Info().
			Str("market", ev.MarketID).
			Uint64("offset", ev.Snapshot.Offset).
			Msg("snapshot applied")
	case ev.Update != nil:
		err := reg.ApplyDelta(ev.MarketID, ev.Update, ev.Timestamp)
		switch {
		case errors.Is(err, book.ErrNoBaseline):
			logger.Debug().Str("market", ev.MarketID).Msg("delta before snapshot, ignored")
		case err != nil:
			logger.Error().Err(err).Str("market", ev.MarketID).Msg("delta rejected")
		}
	}
}

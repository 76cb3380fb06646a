package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"daygen/internal/infra"
	"daygen/internal/infra/geoip"
	"daygen/internal/relay"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	upstream, err := relay.NewUpstream(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("daygend: invalid upstream configuration")
	}

	// The audit trail is optional; without DATABASE_URL the relay only forwards.
	var audit relay.JobAudit
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("daygend: failed to connect database")
		}
		defer pool.Close()
		audit = relay.NewPGAudit(pool, logger)
	}

	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("daygend: geoip disabled")
	}

	app := relay.NewApp(upstream, audit, logger)
	router := relay.NewRouter(app, cfg, geo)
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("daygend: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("daygend: server failed")
	}
	logger.Info().Msg("daygend: stopped")
}

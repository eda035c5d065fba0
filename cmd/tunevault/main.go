package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"tunevault/internal/auth"
	"tunevault/internal/cache"
	"tunevault/internal/config"
	"tunevault/internal/logging"
	"tunevault/internal/memstore"
	"tunevault/internal/playlists"
	"tunevault/internal/storage"
	"tunevault/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.SetGlobal(logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("tunevault stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var (
		dataStore storage.Store
		seeder    catalogSeeder
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		mem := memstore.New()
		dataStore, seeder = mem, mem
		log.Warn().Msg("using in-memory storage; data is lost on exit")
	default:
		if cfg.Storage.AutoMigrate {
			if err := store.RunMigrations(cfg.Database.URL, store.Up); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
		}
		db, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := store.New(db)
		dataStore, seeder = pg, pg
	}

	if cfg.Storage.SeedDemo {
		if err := bootstrapDemoData(ctx, seeder); err != nil {
			return err
		}
		logDevTokens(auth.NewVerifier(cfg.Security.JWTSecret))
	}

	backend, closeBackend, err := newCacheBackend(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			log.Warn().Err(err).Msg("close cache backend")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	coordinator := cache.NewCoordinator(backend, cache.NewMetrics(reg))

	svc := playlists.New(dataStore, coordinator, playlists.WithShareBaseURL(cfg.PublicBaseURL))

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newHTTPHandler(cfg, svc, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Driver).Str("cache", cfg.Cache.Driver).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

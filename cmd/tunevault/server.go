package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"tunevault/internal/auth"
	"tunevault/internal/cache"
	"tunevault/internal/config"
	"tunevault/internal/httpapi"
	"tunevault/internal/middleware"
	"tunevault/internal/playlists"
)

// newCacheBackend picks the cache backend. The returned closer releases any
// client the backend holds.
func newCacheBackend(ctx context.Context, cfg config.CacheConfig) (cache.Backend, func() error, error) {
	if cfg.Driver != config.CacheRedis {
		return cache.NewMemoryBackend(), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Msg("using redis cache backend")
	return cache.NewRedisBackend(client, cfg.Prefix), client.Close, nil
}

func newHTTPHandler(cfg *config.Config, svc *playlists.Service, reg *prometheus.Registry) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	httpapi.New(svc).Register(router)

	router.Use(
		mux.MiddlewareFunc(middleware.Authenticate(auth.NewVerifier(cfg.Security.JWTSecret))),
	)

	var handler http.Handler = router
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.Recovery()(handler)
	return handler
}

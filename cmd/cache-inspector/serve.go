package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/cache-inspector/internal/server"
	"github.com/Sternrassler/cache-inspector/pkg/inspect"
	"github.com/Sternrassler/cache-inspector/pkg/logging"
	"github.com/Sternrassler/cache-inspector/pkg/ratelimit"
	"github.com/Sternrassler/cache-inspector/pkg/store"
)

// Store backends.
const (
	storeRedis  = "redis"
	storeSQLite = "sqlite"
)

type cmdServe struct {
	Port         string        `env:"PORT" default:"8080" help:"Port to listen on."`
	Store        string        `env:"STORE" default:"sqlite" enum:"redis,sqlite" help:"Run and report storage (${enum})."`
	RedisURL     string        `name:"redis-url" env:"REDIS_URL" default:"redis://localhost:6379/0" help:"Redis connection URL. Used by the redis store and the rate limiter."`
	SQLitePath   string        `name:"sqlite-path" env:"SQLITE_PATH" default:":memory:" help:"SQLite database file, or :memory:."`
	Retention    time.Duration `env:"RETENTION" default:"0s" help:"Expire runs and reports after this long (redis store only, 0 keeps them)."`
	RateLimit    int           `name:"rate-limit" env:"RATE_LIMIT" default:"0" help:"Inspections per client and window (requires Redis, 0 disables)."`
	RateWindow   time.Duration `name:"rate-window" env:"RATE_WINDOW" default:"1m" help:"Rate limit window."`
	UserAgent    string        `name:"user-agent" env:"USER_AGENT" default:"cache-inspector/1.0" help:"User-Agent sent to inspected sites."`
	Timeout      time.Duration `env:"INSPECT_TIMEOUT" default:"15s" help:"Timeout per inspection attempt."`
	AllowAnyHost bool          `name:"allow-any-host" env:"ALLOW_ANY_HOST" help:"Inspect sites not served by Netlify."`
}

// addr is the listen address.
func (c cmdServe) addr() string {
	return net.JoinHostPort("", c.Port)
}

// inspectorConfig builds the inspector configuration from flags shared by
// serve and inspect.
func inspectorConfig(userAgent string, timeout time.Duration, allowAnyHost bool) inspect.Config {
	cfg := inspect.DefaultConfig()
	cfg.UserAgent = userAgent
	cfg.Timeout = timeout
	cfg.RequireNetlify = !allowAnyHost
	return cfg
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, c cmdServe) error {
	logger := logging.NewLogger("cache-inspector")

	var redisClient *redis.Client
	if c.Store == storeRedis || c.RateLimit > 0 {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	var st store.Store
	switch c.Store {
	case storeRedis:
		st = store.NewRedisStore(redisClient, logging.NewLogger("store"), c.Retention)
	default:
		sqlite, err := store.OpenSQLite(ctx, c.SQLitePath, logging.NewLogger("store"))
		if err != nil {
			return err
		}
		st = sqlite
		defer st.Close()
	}

	insp, err := inspect.New(inspectorConfig(c.UserAgent, c.Timeout, c.AllowAnyHost))
	if err != nil {
		return fmt.Errorf("create inspector: %w", err)
	}

	var limiter *ratelimit.Limiter
	if c.RateLimit > 0 {
		limiter = ratelimit.NewLimiter(redisClient, ratelimit.Config{
			Limit:  c.RateLimit,
			Window: c.RateWindow,
		}, logging.NewLogger("ratelimit"))
	}

	httpLogger := log.Logger
	srv, err := server.New(server.Config{
		Store:     st,
		Inspector: insp,
		Limiter:   limiter,
		Logger:    &httpLogger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("store", c.Store).
			Int("rate_limit", c.RateLimit).
			Bool("require_netlify", !c.AllowAnyHost).
			Msg("Starting cache inspector API")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"myshop/internal/api"
	"myshop/internal/auth"
	"myshop/internal/cache"
	"myshop/internal/catalog"
	"myshop/internal/config"
	"myshop/internal/services"
	"myshop/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	slog.Info("Starting API Gateway", "port", cfg.HTTPPort, "catalog", cfg.CatalogSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("API Gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var redisClient *cache.Client
	if cfg.RedisAddr != "" {
		rc, err := cache.NewClient(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rc.Close()
		redisClient = rc
		slog.Info("Connected to Redis", "addr", cfg.RedisAddr)
	} else {
		slog.Warn("Redis disabled, running without cache, rate limiting or token revocation")
	}

	st, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("Database ready", "driver", cfg.DatabaseDriver)

	products, err := catalog.New(cfg.CatalogSource, services.NewCatalogClient(cfg.CatalogServiceURL))
	if err != nil {
		return err
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authRepo := auth.NewRepository(st, auth.LogMailer{}, cfg.PasswordResetTTL)
	limit := api.RateLimit{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow}

	// Typed nils must not reach the interface fields below.
	var (
		handler        *api.Handler
		authMiddleware *auth.Middleware
	)
	if redisClient != nil {
		if cfg.CatalogCacheTTL > 0 {
			products = catalog.NewCached(products, redisClient, cfg.CatalogCacheTTL)
		}
		handler = api.NewHandler(products, authRepo, issuer, redisClient, limit)
		authMiddleware = auth.NewMiddleware(issuer, redisClient)
	} else {
		handler = api.NewHandler(products, authRepo, issuer, nil, limit)
		authMiddleware = auth.NewMiddleware(issuer, nil)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	handler.Register(mux, authMiddleware)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

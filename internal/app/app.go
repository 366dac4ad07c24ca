package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rozimuxammed/mlm-marketing/internal/cart"
	"github.com/Rozimuxammed/mlm-marketing/internal/catalog"
	"github.com/Rozimuxammed/mlm-marketing/internal/config"
	"github.com/Rozimuxammed/mlm-marketing/internal/event"
	handler "github.com/Rozimuxammed/mlm-marketing/internal/handler/http"
	"github.com/Rozimuxammed/mlm-marketing/internal/health"
	"github.com/Rozimuxammed/mlm-marketing/internal/httpclient"
	"github.com/Rozimuxammed/mlm-marketing/internal/prefs"
	"github.com/Rozimuxammed/mlm-marketing/internal/realtime"
	"github.com/Rozimuxammed/mlm-marketing/internal/session"
	"github.com/Rozimuxammed/mlm-marketing/internal/storage"
	"github.com/Rozimuxammed/mlm-marketing/internal/upstream"
	"github.com/Rozimuxammed/mlm-marketing/internal/wallet"
)

// App wires together all portal gateway dependencies.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	kv       storage.Store
	producer *event.Producer
	sessions *session.Store
	carts    *cart.Store
	channel  *realtime.Client

	httpServer *http.Server
}

// NewApp builds the dependency graph. It opens the durable store, hydrates
// the session and cart from it, and prepares the HTTP server; Run starts
// serving.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	kv, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	producer := event.NewProducer(cfg.KafkaBrokers, logger)
	if producer != nil {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Upstream backend client behind a circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.UpstreamTimeout
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("mlm-backend"),
		logger,
	)
	backend := upstream.NewClient(cfg.UpstreamURL, breaker)

	sessions := session.NewStore(backend, kv, producer, logger, cfg.DailyBonusCoins)
	carts := cart.NewStore(kv, producer, logger)
	prefStore := prefs.NewStore(kv, logger)
	catalogSvc := catalog.NewService(backend, catalog.DefaultTTL, logger)

	var channel *realtime.Client
	if !cfg.RealtimeDisabled {
		channel = realtime.NewClient(cfg.RealtimeURL, sessions.Token, logger)
	}
	walletStore := wallet.NewStore(backend, channel, sessions.Token, cfg.DepositCooldown, logger)

	// Hydrate local state before accepting requests. All three degrade
	// silently when storage or the backend is unavailable.
	sessions.Restore(ctx)
	carts.Restore(ctx)
	prefStore.Restore(ctx)

	healthHandler := health.NewHandler()
	healthHandler.Register("storage", func(ctx context.Context) error {
		_, err := kv.Get(ctx, storage.KeyLocale)
		if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	healthHandler.Register("kafka", producer.Ping)

	router := handler.NewRouter(handler.RouterDeps{
		Sessions:      sessions,
		Carts:         carts,
		Catalog:       catalogSvc,
		Wallet:        walletStore,
		Prefs:         prefStore,
		Referrals:     backend,
		HealthHandler: healthHandler,
		Logger:        logger,
		AllowedOrigin: cfg.AllowedOrigin,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		kv:         kv,
		producer:   producer,
		sessions:   sessions,
		carts:      carts,
		channel:    channel,
		httpServer: httpServer,
	}, nil
}

// openStorage opens the configured durable store. A bolt open failure falls
// back to memory so the portal still runs, just without persistence.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
		return storage.NewRedisStore(rdb), nil

	default:
		store, err := storage.OpenBolt(cfg.DataDir)
		if err != nil {
			logger.Warn("open bolt store failed, running without persistence",
				slog.String("dir", cfg.DataDir),
				slog.String("error", err.Error()),
			)
			return storage.NewMemoryStore(), nil
		}
		logger.Info("opened bolt store", slog.String("dir", cfg.DataDir))
		return store, nil
	}
}

// Run starts the HTTP server and the realtime channel, then blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if a.channel != nil {
		go a.channel.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down portal gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.kv.Close(); err != nil {
		a.logger.Error("storage close error", slog.String("error", err.Error()))
	}

	a.logger.Info("portal gateway shutdown complete")
	return nil
}

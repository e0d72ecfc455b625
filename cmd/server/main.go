// file: cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"goldhub/internal/cache"
	"goldhub/internal/catalog"
	"goldhub/internal/config"
	"goldhub/internal/database"
	"goldhub/internal/events"
	"goldhub/internal/pricefeed"
	"goldhub/internal/repositories"
	"goldhub/internal/router"
	"goldhub/internal/services"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewManager(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Cache
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Provider = cfg.Cache.Type
	cacheCfg.RedisURL = cfg.Cache.RedisURL
	cacheCfg.TTL = cfg.Cache.TTL
	appCache, err := cache.NewCache(cacheCfg, logger)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer appCache.Close()

	// Repositories
	repos, err := repositories.NewCollection(db, logger)
	if err != nil {
		return fmt.Errorf("repositories: %w", err)
	}

	// Catalog: static tables merged with admin-defined challenges.
	static, err := catalog.NewStaticProvider(catalog.DefaultBadges(), catalog.DefaultChallenges())
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	provider := catalog.NewStoreProvider(static, repos.Challenge, appCache, cfg.Catalog.CacheTTL, logger)

	// Price feed
	var feed pricefeed.Feed
	switch cfg.PriceFeed.Type {
	case "fixed":
		feed = pricefeed.NewFixedFeed(cfg.PriceFeed.FixedPrice)
	default:
		feed = pricefeed.NewCSVFeed(cfg.PriceFeed.CSVPath, logger)
	}

	// Events
	eventBus := events.NewEventBus(events.DefaultConfig(), logger)
	if err := eventBus.Start(ctx); err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer eventBus.Stop(context.Background())

	// Services
	hub := services.NewNotificationHub(logger)
	notifications := services.NewNotificationService(repos.Notification, hub, logger)
	achievements := services.NewAchievementService(repos.User, provider, notifications, eventBus, logger)
	tradeSvc := services.NewTradeService(repos.User, repos.Transaction, feed, achievements, eventBus, logger)
	challengeAdm := services.NewChallengeAdminService(repos.Challenge, provider, logger)

	handler := router.New(&router.Dependencies{
		Achievements:  achievements,
		Trades:        tradeSvc,
		Notifications: notifications,
		ChallengeAdm:  challengeAdm,
		Hub:           hub,
		DB:            db,
		JWTSecret:     cfg.Auth.JWTSecret,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			zap.String("addr", server.Addr),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func buildLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

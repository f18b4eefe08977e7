package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rmartins/navengine/internal/api"
	"github.com/rmartins/navengine/internal/config"
	"github.com/rmartins/navengine/internal/database"
	"github.com/rmartins/navengine/internal/logger"
	"github.com/rmartins/navengine/internal/navcache"
	"github.com/rmartins/navengine/internal/pricesource"
	"github.com/rmartins/navengine/internal/repository"
	"github.com/rmartins/navengine/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Str("path", cfg.Database.Path).Msg("Connected to database")

	// Resolve the provider API key from the encrypted key store when a
	// secret is configured. Running without a key is allowed.
	apiKey := ""
	if cfg.Pricing.KeySecret != "" {
		keystore, err := pricesource.NewKeyStore(cfg.Pricing.KeyFile, cfg.Pricing.KeySecret)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open API key store")
		}
		apiKey, err = keystore.Get("cryptocompare")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read API key store")
		}
	}

	priceClient := pricesource.NewClient(cfg.Pricing.BaseURL, apiKey, cfg.Pricing.CallTimeout)

	navCache, err := navcache.New(cfg.Nav.CacheDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open NAV cache")
	}

	// Create repositories
	tradeRepo := repository.NewTradeRepository(db)

	// Create services
	fxService := service.NewFxService(tradeRepo, priceClient, cfg.Nav.ReportingCurrency, log)
	costBasisService := service.NewCostBasisService(log)
	positionService := service.NewPositionService(fxService, costBasisService, priceClient, navCache, log)
	navService := service.NewNavService(fxService, priceClient, navCache, cfg.Nav, log)

	// Background NAV refresh keeps the default user's series warm so page
	// loads never pay the full rebuild.
	var scheduler *cron.Cron
	if cfg.Nav.RefreshSchedule != "" && cfg.Nav.DefaultUser != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Nav.RefreshSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := navService.Regenerate(ctx, cfg.Nav.DefaultUser, service.NopNotifier()); err != nil {
				log.Warn().Err(err).Str("user", cfg.Nav.DefaultUser).Msg("Background NAV refresh failed")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Nav.RefreshSchedule).Msg("Invalid NAV refresh schedule")
		}
		scheduler.Start()
		log.Info().Str("schedule", cfg.Nav.RefreshSchedule).Msg("Started background NAV refresher")
	}

	// Create router
	router := api.NewRouter(db, tradeRepo, positionService, navService, cfg, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

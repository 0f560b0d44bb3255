package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/clinicflow/internal/adapters/cache"
	"github.com/zatekoja/clinicflow/internal/adapters/database"
	"github.com/zatekoja/clinicflow/internal/adapters/events"
	"github.com/zatekoja/clinicflow/internal/api/handlers"
	"github.com/zatekoja/clinicflow/internal/api/middleware"
	"github.com/zatekoja/clinicflow/internal/api/routes"
	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
	redisclient "github.com/zatekoja/clinicflow/internal/infrastructure/clients/redis"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
	"github.com/zatekoja/clinicflow/pkg/config"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if store, _ := cmd.Flags().GetString("store"); store != "" {
				os.Setenv("CLINIC_STORE", store)
			}
			seed, _ := cmd.Flags().GetBool("seed")
			return runServer(seed)
		},
	}
	cmd.Flags().String("store", "", "ledger store backend: postgres or memory (overrides CLINIC_STORE)")
	cmd.Flags().Bool("seed", false, "load demo staff, beds and stock before serving")
	return cmd
}

func runServer(seed bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	ctx := context.Background()

	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	store, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()
	log.Info().Str("store", cfg.Clinic.Store).Msg("ledger store ready")

	clock := services.SystemClock(cfg.Clinic.Location)
	if seed {
		if err := seedDemo(ctx, store, clock); err != nil {
			return err
		}
	}

	// Redis backs the notifier and the directory cache; without it both fall
	// back to in-process implementations.
	var (
		eventBus providers.EventBus
		cacheP   providers.CacheProvider
	)
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-process event bus and cache")
		} else {
			defer redisClient.Close()
			eventBus = events.NewRedisEventBus(redisClient)
			cacheP = cache.NewRedisAdapter(redisClient)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}
	if eventBus == nil {
		eventBus = events.NewMemoryEventBus()
		cacheP = cache.NewMemoryAdapter()
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}()

	tokenService := services.NewTokenService(store.tx, store.patients, store.visits, eventBus, clock, services.TokenConfig{
		DefaultRegion: cfg.Clinic.DefaultRegion,
		MaxAttempts:   cfg.Clinic.TokenMaxAttempts,
	}, metrics)
	prescriptionService := services.NewPrescriptionService(store.tx, store.visits, store.prescriptions, eventBus, clock)
	inventoryService := services.NewInventoryService(store.tx, store.inventory, store.prescriptions, store.dispenses, eventBus, clock, cfg.Clinic.LowStockThreshold, metrics)
	billingService := services.NewBillingService(store.tx, store.patients, store.dispenses, store.bills, eventBus, clock, metrics)
	bedService := services.NewBedService(store.tx, store.beds, store.patients, eventBus, clock, metrics)
	directoryService := services.NewDirectoryService(
		database.NewCachedProfileAdapter(store.profiles, cacheP, cfg.Clinic.DoctorCacheSeconds, metrics),
	)

	router := routes.NewRouter(
		handlers.NewReceptionHandler(tokenService, directoryService),
		handlers.NewPrescriptionHandler(prescriptionService, middleware.HeaderIdentity{}),
		handlers.NewInventoryHandler(inventoryService),
		handlers.NewBillingHandler(billingService),
		handlers.NewBedHandler(bedService),
		handlers.NewSSEHandler(eventBus),
		store,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// event streams hold the response open, so no WriteTimeout
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"facetsearch/pkg/logger"
	"facetsearch/search-service/internal/app/search/config"
	"facetsearch/search-service/internal/app/search/handler"
	"facetsearch/search-service/internal/app/search/processor"
	"facetsearch/search-service/internal/app/search/service"
	"facetsearch/search-service/internal/app/search/util"

	"github.com/spf13/cobra"
)

func newServeCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the product events consumer and the orphan sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg())
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return err
	}
	defer store.Close()
	go store.reportPoolStats(ctx, 15*time.Second)

	redisClient, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Redis")
		return err
	}
	defer redisClient.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Msg("Connected to Redis")

	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.FacetTopic)
	defer kafkaProducer.Close()
	logger.Info().Str("topic", cfg.Kafka.FacetTopic).Msg("Initialized Kafka producer")

	repos := store.repositories()

	schemaService := service.NewSchemaService(repos.categories, repos.descriptions, redisClient, kafkaProducer)
	valueService := service.NewValueService(repos.descriptions, repos.values, redisClient, kafkaProducer, cfg.Search.FacetCacheTTL)
	attributionService := service.NewAttributionService(repos.values, repos.attributions, repos.products, kafkaProducer)
	searchService := service.NewSearchService(
		repos.categories,
		repos.products,
		repos.attributions,
		valueService,
		service.SearchOptions{MaxPageSize: cfg.Search.MaxPageSize},
	)

	router := handler.SetupRoutes(
		handler.NewSearchHandler(searchService, cfg.Search.DefaultPageSize, cfg.Search.Timeout),
		handler.NewCatalogHandler(schemaService, valueService, attributionService),
		handler.NewAuthMiddleware(cfg.JWT.Secret),
	)

	consumer := processor.NewProductEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.ProductTopic, cfg.Kafka.GroupID, attributionService)
	consumer.Start(ctx)

	scheduler := processor.NewSweepScheduler(attributionService)
	if err := scheduler.Start(ctx, cfg.Sweep.Schedule); err != nil {
		logger.Error().Err(err).Str("schedule", cfg.Sweep.Schedule).Msg("Invalid sweep schedule")
		stop()
		consumer.Stop()
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Msg("Starting Search Service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		logger.Error().Err(err).Msg("Failed to start server")
	}

	logger.Info().Msg("Shutting down Search Service...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("Server forced to shutdown")
	}

	consumer.Stop()
	scheduler.Stop()

	logger.Info().Msg("Search Service stopped gracefully")
	return err
}

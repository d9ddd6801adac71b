package main

import (
	"context"

	"facetsearch/pkg/logger"
	"facetsearch/search-service/internal/app/search/config"
	"facetsearch/search-service/internal/app/search/service"
	"facetsearch/search-service/internal/app/search/util"

	"github.com/spf13/cobra"
)

func newSweepCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove attributions of missing products and values once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweep(cmd.Context(), cfg())
		},
	}
}

func sweep(ctx context.Context, cfg *config.Config) error {
	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.FacetTopic)
	defer kafkaProducer.Close()

	repos := store.repositories()
	attributionService := service.NewAttributionService(repos.values, repos.attributions, repos.products, kafkaProducer)

	removed, err := attributionService.SweepOrphans(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Orphan attribution sweep failed")
		return err
	}

	logger.Info().Int64("removed", removed).Msg("Orphan attribution sweep completed")
	return nil
}

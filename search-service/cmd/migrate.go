package main

import (
	"context"
	"fmt"

	"facetsearch/pkg/logger"
	"facetsearch/search-service/internal/app/search/config"
	"facetsearch/search-service/internal/app/search/entity"

	"github.com/spf13/cobra"
)

func newMigrateCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the search schema tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), cfg())
		},
	}
}

func migrate(ctx context.Context, cfg *config.Config) error {
	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	// порядок важен: значения ссылаются на описания, описания на категории
	err = store.gorm.WithContext(ctx).AutoMigrate(
		&entity.Category{},
		&entity.FilterDescription{},
		&entity.FilterValueRecord{},
		&entity.Product{},
		&entity.FilterProduct{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	logger.Info().Msg("Database schema is up to date")
	return nil
}

package main

import (
	"fmt"
	"os"

	"facetsearch/pkg/logger"
	"facetsearch/search-service/internal/app/search/config"

	"github.com/spf13/cobra"
)

const serviceName = "search-service"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Faceted product search over the catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				return err
			}
			cfg = loaded
			initLogger(cfg.Log)
			return nil
		},
	}

	// cfg заполняется в PersistentPreRunE до запуска подкоманды
	current := func() *config.Config { return cfg }

	root.AddCommand(
		newServeCommand(current),
		newMigrateCommand(current),
		newSweepCommand(current),
	)

	return root
}

func initLogger(cfg config.LogConfig) {
	logger.Init(serviceName, cfg.Level)

	if cfg.LogstashAddr == "" {
		return
	}
	if err := logger.InitLogstash(cfg.LogstashAddr, serviceName, cfg.Level); err != nil {
		logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		return
	}
	logger.Info().Str("logstash_addr", cfg.LogstashAddr).Msg("Connected to Logstash")
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/logger"
)

type rootOptions struct {
	configPath string
	driver     string
	sqlitePath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "searchctl",
		Short:         "Query and manage the keyword search index",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.driver != "" {
				cfg.Store.Driver = opts.driver
			}
			if opts.sqlitePath != "" {
				cfg.Store.SQLitePath = opts.sqlitePath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, "text")
			opts.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (defaults plus SP_* env when empty)")
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "store driver override: postgres or sqlite")
	cmd.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "sqlite database path override")

	cmd.AddCommand(newQueryCmd(opts), newSchemaCmd(opts), newSeedCmd(opts))
	return cmd
}

// withBackend opens the configured store for the duration of fn.
func (o *rootOptions) withBackend(ctx context.Context, fn func(store.Backend) error) error {
	backend, err := store.Open(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	if err := fn(backend); err != nil {
		return fmt.Errorf("%s store: %w", o.cfg.Store.Driver, err)
	}
	return nil
}

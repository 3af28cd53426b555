package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/partnershiphub/hub/pkg/logging"
)

func newMigrateCommand() *cobra.Command {
	var seedOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed approval chains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			if cfg.Database.DSN == "" {
				return errors.New("database.dsn is required")
			}
			logger, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			if !seedOnly {
				if err := a.migrate(cmd.Context()); err != nil {
					return err
				}
			}
			return a.seedChains(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&seedOnly, "seed-only", false, "only apply the chain seed file")
	return cmd
}

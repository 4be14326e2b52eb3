package main

import (
	"errors"

	"github.com/spf13/cobra"

	"solana-airdrop/internal/storage/migrations"
	"solana-airdrop/internal/storage/postgres"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured stores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg
			if cfg.PostgresDSN == "" && cfg.ClickHouseDSN == "" {
				return errors.New("neither POSTGRES_DSN nor CLICKHOUSE_DSN is set")
			}

			if cfg.PostgresDSN != "" {
				pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
					return err
				}
				opts.log.Info("postgres migrations applied")
			}

			if cfg.ClickHouseDSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
				if err != nil {
					return err
				}
				defer conn.Close()
				opts.log.Info("clickhouse migrations applied")
			}
			return nil
		},
	}
}

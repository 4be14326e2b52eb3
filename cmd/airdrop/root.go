package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"solana-airdrop/internal/config"
)

type globalOptions struct {
	envFile string
	cfg     *config.Config
	log     *logrus.Entry
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "airdrop",
		Short:         "Solana SPL token airdrop service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			opts.cfg = cfg
			opts.log = logrus.NewEntry(cfg.NewLogger()).WithField("env", cfg.Environment)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newServeCmd(opts),
		newTokenCmd(opts),
		newMigrateCmd(opts),
		newValidateCmd(opts),
	)
	return root
}

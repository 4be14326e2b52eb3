package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"solana-airdrop/internal/auth"
)

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var (
		userID string
		admin  bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.cfg.ValidateAuth(); err != nil {
				return err
			}
			manager, err := auth.NewJWTManager(opts.cfg.JWTSecret)
			if err != nil {
				return err
			}
			token, err := manager.GenerateToken(userID, admin)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "admin", "value of the id claim")
	cmd.Flags().BoolVar(&admin, "admin", true, "value of the admin claim")
	return cmd
}

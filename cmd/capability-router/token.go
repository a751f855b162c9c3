package main

import (
	"fmt"

	"github.com/sophia-ai/capability-router/internal/config"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			auth := service.NewTokenAuthority(cfg.JWTSecret, cfg.JWTTTL)
			token, err := auth.Issue(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ops", "subject recorded in the token")
	return cmd
}

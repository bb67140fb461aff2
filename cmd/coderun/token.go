package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/code-runner/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for POST /api/execute",
		Long: `Sign a token with the server's JWT_SECRET. Hand it to the service
that will call the API:

  curl -H "Authorization: Bearer $(coderun token --subject grader)" ...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			tokens, err := auth.NewTokenService(secret)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateWithDuration(subject, ttl)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Name of the calling service")
	cmd.Flags().Duration("ttl", auth.DefaultTTL, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

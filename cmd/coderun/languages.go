package main

import (
	"context"
	"encoding/json"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/code-runner/internal/executor"
)

func newLanguagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and where each can run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(engine.Languages())
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "NAME\tDISPLAY NAME\tVERSION\tBACKEND\n")
			for _, d := range engine.Registry().Descriptors() {
				backend := "-"
				if b, err := engine.Select(d, executor.StrategyAuto); err == nil {
					backend = b.Name()
				}
				printf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.DisplayName, d.ToolchainVersion, backend)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "Print as JSON")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured backends can run code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cfg, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), waitBudget(cfg))
			defer cancel()

			a := engine.CheckAvailability(ctx, cfg.Strategy)
			if !a.Available {
				printf(cmd.ErrOrStderr(), "unavailable: %s\n", a.Detail)
				return &exitError{code: 1}
			}
			printf(cmd.OutOrStdout(), "healthy: %s\n", a.Detail)
			return nil
		},
	}
}

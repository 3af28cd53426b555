package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server liveness and readiness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newClient(opts)

			live, err := client.probe("/healthz")
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			ready, err := client.probe("/readyz")
			if err != nil {
				// The server may still be connecting to its database.
				ready = "not ready: " + err.Error()
			}

			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, map[string]string{
					"liveness":  live,
					"readiness": ready,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"Check", "Status"}, [][]string{
				{"Liveness", live},
				{"Readiness", ready},
			})
			return nil
		},
	}
}

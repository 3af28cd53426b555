package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/partnershiphub/hub/pkg/workflow"
)

func newChainsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chains",
		Short: "Show and configure approval chains",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the project's approval chains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.projectPath("/chains")
			if err != nil {
				return err
			}
			var result struct {
				Chains []workflow.Chain `json:"chains"`
			}
			if err := newClient(opts).getJSON(path, &result); err != nil {
				return fmt.Errorf("failed to list chains: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, result)
			}
			rows := make([][]string, 0, len(result.Chains))
			for _, c := range result.Chains {
				rows = append(rows, []string{
					string(c.ContentCategory),
					strings.Join(c.RequiredRoles, ", "),
					string(c.ChainType),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"Category", "Required Roles", "Type"}, rows)
			return nil
		},
	})

	var (
		roles     []string
		chainType string
	)
	set := &cobra.Command{
		Use:     "set <category>",
		Short:   "Create or replace the chain for a content category",
		Example: "  hubctl chains set pr --roles brand,league",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath("/chains")
			if err != nil {
				return err
			}
			body := map[string]any{
				"contentCategory": args[0],
				"requiredRoles":   roles,
				"chainType":       chainType,
			}
			var chain workflow.Chain
			if err := newClient(opts).putJSON(path, body, &chain); err != nil {
				return fmt.Errorf("failed to set chain: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, chain)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chain for %s requires %s\n",
				chain.ContentCategory, strings.Join(chain.RequiredRoles, ", "))
			return nil
		},
	}
	set.Flags().StringSliceVar(&roles, "roles", nil, "Roles whose members must approve")
	set.Flags().StringVar(&chainType, "type", string(workflow.ChainParallel), "Chain type: parallel or sequential")
	_ = set.MarkFlagRequired("roles")
	cmd.AddCommand(set)
	return cmd
}

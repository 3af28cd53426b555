package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/partnershiphub/hub/pkg/workflow"
)

func newMembersCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List and invite project members",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List project members and their roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.projectPath("/members")
			if err != nil {
				return err
			}
			var result struct {
				Members []workflow.Member `json:"members"`
			}
			if err := newClient(opts).getJSON(path, &result); err != nil {
				return fmt.Errorf("failed to list members: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, result)
			}
			rows := make([][]string, 0, len(result.Members))
			for _, m := range result.Members {
				rows = append(rows, []string{m.ID, dash(m.Email), dash(m.FullName), m.RoleLabel})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Email", "Name", "Role"}, rows)
			return nil
		},
	})

	var (
		fullName string
		role     string
	)
	invite := &cobra.Command{
		Use:   "invite <email>",
		Short: "Add a user to the project by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath("/members")
			if err != nil {
				return err
			}
			body := map[string]string{"email": args[0], "fullName": fullName, "role": role}
			var member workflow.Member
			if err := newClient(opts).postJSON(path, body, &member); err != nil {
				return fmt.Errorf("failed to invite member: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, member)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s as %s\n", member.Email, member.RoleLabel)
			return nil
		},
	}
	invite.Flags().StringVar(&fullName, "name", "", "Full name for a new profile")
	invite.Flags().StringVar(&role, "role", "viewer", "Role: admin, brand, league, pa, club or viewer")
	cmd.AddCommand(invite)
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/partnershiphub/hub/pkg/workflow"
)

func newProjectsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and create projects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the projects you belong to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var result struct {
				Projects []workflow.Project `json:"projects"`
			}
			if err := newClient(opts).getJSON(apiBase+"/projects", &result); err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, result)
			}
			rows := make([][]string, 0, len(result.Projects))
			for _, p := range result.Projects {
				rows = append(rows, []string{p.ID, p.Name, string(p.Role), dash(p.StartDate), dash(p.EndDate)})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Name", "Role", "Start", "End"}, rows)
			return nil
		},
	})

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project; you become its admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var project workflow.Project
			body := map[string]string{"name": args[0], "description": description}
			if err := newClient(opts).postJSON(apiBase+"/projects", body, &project); err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, project)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", project.Name, project.ID)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "Project description")
	cmd.AddCommand(create)
	return cmd
}

package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/partnershiphub/hub/pkg/workflow"
)

func newAssetsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assets",
		Aliases: []string{"asset"},
		Short:   "Browse assets and move them through review",
	}
	cmd.AddCommand(
		newAssetsListCommand(opts),
		newAssetsGetCommand(opts),
		newAssetsCreateCommand(opts),
		newAssetsSubmitCommand(opts),
		newAssetsStatusCommand(opts),
	)
	return cmd
}

func newAssetsListCommand(opts *options) *cobra.Command {
	var (
		statuses []string
		category string
		search   string
		filter   string
		library  bool
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets in the project",
		Example: `  hubctl assets list --status in_review,approved
  hubctl assets list --filter "contentCategory IN ('pr', 'trust') AND version >= 2"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			suffix := "/assets"
			if library {
				suffix = "/library"
			}
			path, err := opts.projectPath(suffix)
			if err != nil {
				return err
			}
			q := url.Values{}
			for _, s := range statuses {
				q.Add("status", s)
			}
			if category != "" {
				q.Set("category", category)
			}
			if search != "" {
				q.Set("q", search)
			}
			if filter != "" {
				q.Set("filterQuery", filter)
			}
			if pageSize > 0 {
				q.Set("pageSize", strconv.Itoa(pageSize))
			}
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var result workflow.AssetList
			if err := newClient(opts).getJSON(path, &result); err != nil {
				return fmt.Errorf("failed to list assets: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, result)
			}

			rows := make([][]string, 0, len(result.Assets))
			for _, a := range result.Assets {
				rows = append(rows, []string{
					a.ID,
					truncate(a.Title, 40),
					string(a.ContentCategory),
					string(a.Status),
					"v" + strconv.Itoa(a.Version),
					dash(a.ApprovalDue),
				})
			}
			out := cmd.OutOrStdout()
			printTable(out, []string{"ID", "Title", "Category", "Status", "Version", "Due"}, rows)
			fmt.Fprintf(out, "Total: %d\n", result.TotalSize)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable or comma-separated)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by content category")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Search titles and descriptions")
	cmd.Flags().StringVar(&filter, "filter", "", "Filter expression over asset fields")
	cmd.Flags().BoolVar(&library, "library", false, "List the published library instead")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Maximum number of results")
	return cmd
}

func newAssetsGetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <asset-id>",
		Short: "Show an asset with its approvals and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath("/assets/" + args[0])
			if err != nil {
				return err
			}
			var asset workflow.Asset
			if err := newClient(opts).getJSON(path, &asset); err != nil {
				return fmt.Errorf("failed to get asset: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, asset)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  [%s, v%d]\n", asset.Title, asset.Status, asset.Version)
			fmt.Fprintf(out, "Category: %s  Created by: %s\n", asset.ContentCategory, asset.CreatedBy)
			if len(asset.AllowedTransitions) > 0 {
				next := make([]string, len(asset.AllowedTransitions))
				for i, s := range asset.AllowedTransitions {
					next[i] = string(s)
				}
				fmt.Fprintf(out, "Next: %s\n", strings.Join(next, ", "))
			}
			fmt.Fprintln(out)
			printApprovals(out, asset.Approvals)
			return nil
		},
	}
}

func newAssetsCreateCommand(opts *options) *cobra.Command {
	var (
		category    string
		description string
		platforms   []string
		externalURL string
		due         string
	)
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Upload a new draft asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath("/assets")
			if err != nil {
				return err
			}
			body := map[string]any{
				"title":           args[0],
				"contentCategory": category,
				"description":     description,
				"platforms":       platforms,
				"externalUrl":     externalURL,
				"approvalDue":     due,
			}
			var asset workflow.Asset
			if err := newClient(opts).postJSON(path, body, &asset); err != nil {
				return fmt.Errorf("failed to create asset: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, asset)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created draft %s (%s)\n", asset.Title, asset.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Content category, e.g. pr, hype, trust")
	cmd.Flags().StringVar(&description, "description", "", "Asset description")
	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "Target platforms")
	cmd.Flags().StringVar(&externalURL, "url", "", "Link to the asset file")
	cmd.Flags().StringVar(&due, "due", "", "Approval due date (RFC 3339)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newAssetsSubmitCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <asset-id>",
		Short: "Submit an asset for review",
		Long: `Submit a draft, or resubmit an asset after changes were requested or it
was rejected. Resubmission bumps the version and opens fresh approvals.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath("/assets/" + args[0] + "/submit")
			if err != nil {
				return err
			}
			var asset workflow.Asset
			if err := newClient(opts).postJSON(path, nil, &asset); err != nil {
				return fmt.Errorf("failed to submit asset: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, asset)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted %q as v%d; %d approval(s) requested\n", asset.Title, asset.Version, len(asset.Approvals))
			printApprovals(out, asset.Approvals)
			return nil
		},
	}
}

func newAssetsStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <asset-id> <published|archived|draft>",
		Short: "Publish, archive or restore an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath("/assets/" + args[0] + "/status")
			if err != nil {
				return err
			}
			var asset workflow.Asset
			if err := newClient(opts).postJSON(path, map[string]string{"status": args[1]}, &asset); err != nil {
				return fmt.Errorf("failed to change status: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, asset)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", asset.Title, asset.Status)
			return nil
		},
	}
}

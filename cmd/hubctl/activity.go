package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/partnershiphub/hub/pkg/workflow"
)

func newActivityCommand(opts *options) *cobra.Command {
	var (
		assetID  string
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the project's activity log, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.projectPath("/activity")
			if err != nil {
				return err
			}
			q := url.Values{}
			if assetID != "" {
				q.Set("assetId", assetID)
			}
			if pageSize > 0 {
				q.Set("pageSize", strconv.Itoa(pageSize))
			}
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var result workflow.ActivityList
			if err := newClient(opts).getJSON(path, &result); err != nil {
				return fmt.Errorf("failed to list activity: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, result)
			}
			rows := make([][]string, 0, len(result.Entries))
			for _, e := range result.Entries {
				rows = append(rows, []string{e.CreatedAt, e.Action, dash(e.UserID), dash(e.AssetID)})
			}
			printTable(cmd.OutOrStdout(), []string{"Time", "Action", "User", "Asset"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&assetID, "asset", "", "Only show entries for one asset")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Maximum number of entries")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/partnershiphub/hub/pkg/workflow"
)

func newApprovalsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "Review the approval queue and record decisions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List approvals waiting on you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.projectPath("/approvals/pending")
			if err != nil {
				return err
			}
			var result struct {
				Approvals []workflow.Approval `json:"approvals"`
			}
			if err := newClient(opts).getJSON(path, &result); err != nil {
				return fmt.Errorf("failed to list pending approvals: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, result)
			}
			rows := make([][]string, 0, len(result.Approvals))
			for _, a := range result.Approvals {
				rows = append(rows, []string{
					a.ID,
					truncate(a.AssetTitle, 40),
					"v" + strconv.Itoa(a.VersionReviewed),
					dash(a.ApprovalDue),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Asset", "Version", "Due"}, rows)
			return nil
		},
	})

	cmd.AddCommand(
		newDecisionCommand(opts, "approve", workflow.ApprovalApproved, "Approve an asset version"),
		newDecisionCommand(opts, "reject", workflow.ApprovalRejected, "Reject an asset version"),
		newDecisionCommand(opts, "request-changes", workflow.ApprovalChangesRequested, "Ask the creator for changes"),
	)
	return cmd
}

func newDecisionCommand(opts *options, use string, decision workflow.ApprovalStatus, short string) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   use + " <approval-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath("/approvals/" + args[0] + "/decision")
			if err != nil {
				return err
			}
			var result struct {
				Approval workflow.Approval `json:"approval"`
				Asset    workflow.Asset    `json:"asset"`
			}
			body := map[string]string{"decision": string(decision), "comment": comment}
			if err := newClient(opts).postJSON(path, body, &result); err != nil {
				return fmt.Errorf("failed to record decision: %w", err)
			}
			if opts.structured() {
				return printOutput(cmd.OutOrStdout(), opts.output, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s on %q; asset is now %s\n",
				result.Approval.Status, result.Asset.Title, result.Asset.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment for the creator")
	return cmd
}

func printApprovals(w io.Writer, approvals []workflow.Approval) {
	if len(approvals) == 0 {
		return
	}
	rows := make([][]string, 0, len(approvals))
	for _, a := range approvals {
		rows = append(rows, []string{
			a.ID,
			a.UserID,
			string(a.Status),
			"v" + strconv.Itoa(a.VersionReviewed),
			dash(truncate(a.Comment, 40)),
		})
	}
	printTable(w, []string{"Approval", "Approver", "Status", "Version", "Comment"}, rows)
}

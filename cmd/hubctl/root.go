package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

// options holds the global flags shared by every command.
type options struct {
	serverURL string
	output    string
	project   string
	userID    string
	email     string
	token     string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// projectID returns the project flag or an error naming how to set it.
func (o *options) projectID() (string, error) {
	if o.project == "" {
		return "", errors.New("a project is required: pass --project or set HUB_PROJECT")
	}
	return o.project, nil
}

func (o *options) projectPath(suffix string) (string, error) {
	id, err := o.projectID()
	if err != nil {
		return "", err
	}
	return apiBase + "/projects/" + id + suffix, nil
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "hubctl",
		Short: "CLI for the Partnership Hub API",
		Long: `hubctl talks to a Partnership Hub server.

Most commands act on one project, selected with --project or HUB_PROJECT.
Authenticate with --token (a bearer JWT) or, against a server in header
auth mode, with --user and --email.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.serverURL, "server", envOr("HUB_SERVER", "http://localhost:8080"), "Hub server URL")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format: table, json, yaml")
	flags.StringVarP(&opts.project, "project", "p", os.Getenv("HUB_PROJECT"), "Project ID")
	flags.StringVar(&opts.userID, "user", os.Getenv("HUB_USER"), "User ID sent as X-User-ID (header auth mode)")
	flags.StringVar(&opts.email, "email", os.Getenv("HUB_EMAIL"), "Email sent as X-User-Email (header auth mode)")
	flags.StringVar(&opts.token, "token", os.Getenv("HUB_TOKEN"), "Bearer token (jwt auth mode)")

	root.AddCommand(
		newHealthCommand(opts),
		newProjectsCommand(opts),
		newAssetsCommand(opts),
		newApprovalsCommand(opts),
		newChainsCommand(opts),
		newMembersCommand(opts),
		newActivityCommand(opts),
	)
	return root
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quizgen/internal/api"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or refresh the NotebookLM session",
	}
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionRefreshCommand(ctx))
	return sessionCmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Summarise the loaded credentials without printing secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			store := client.Session()
			status := api.FromSession(store.BaseURL(), store.Snapshot())
			return printSession(ctx, cmd, ctx.configValue().Paths.CredentialsPath, status)
		},
	}
}

func newSessionRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the landing page to renew the CSRF token and session id",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			updated, err := client.RefreshSession(cmd.Context())
			if err != nil {
				return err
			}
			store := client.Session()
			status := api.FromSession(store.BaseURL(), store.Snapshot())
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, struct {
					Refreshed bool              `json:"refreshed"`
					Session   api.SessionStatus `json:"session"`
				}{updated, status})
			}
			if updated {
				fmt.Fprintln(cmd.OutOrStdout(), "Session refreshed")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Landing page carried no token; the credential bundle may have expired")
			}
			return printSession(ctx, cmd, ctx.configValue().Paths.CredentialsPath, status)
		},
	}
}

func printSession(ctx *commandContext, cmd *cobra.Command, credentialsPath string, status api.SessionStatus) error {
	if ctx.wantJSON(cmd) {
		return writeJSON(cmd, status)
	}
	rows := [][]string{
		{"Credentials", credentialsPath},
		{"Base URL", status.BaseURL},
		{"Cookies", fmt.Sprintf("%d (%s)", status.CookieCount, strings.Join(status.CookieNames, ", "))},
		{"CSRF token", yesNo(status.HasCSRFToken)},
		{"Session id", yesNo(status.HasSessionID)},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
	return nil
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"quizgen/internal/logging"
)

func newNotebooksCommand(ctx *commandContext) *cobra.Command {
	notebooksCmd := &cobra.Command{
		Use:     "notebooks",
		Aliases: []string{"nb"},
		Short:   "List or remove NotebookLM notebooks",
	}
	notebooksCmd.AddCommand(newNotebooksListCommand(ctx))
	notebooksCmd.AddCommand(newNotebooksRemoveCommand(ctx))
	return notebooksCmd
}

func newNotebooksListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notebooks visible to the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			notebooks, err := client.ListNotebooks(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, notebooks)
			}
			if len(notebooks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notebooks found")
				return nil
			}
			rows := make([][]string, 0, len(notebooks))
			for _, nb := range notebooks {
				rows = append(rows, []string{nb.ID, nb.Title, strconv.Itoa(nb.SourceCount)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Sources"},
				rows,
				2,
			))
			return nil
		},
	}
}

func newNotebooksRemoveCommand(ctx *commandContext) *cobra.Command {
	var keepJobs bool

	cmd := &cobra.Command{
		Use:     "rm <notebook-id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete notebooks and forget their jobs",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			ledger, err := ctx.openJobs()
			if err != nil {
				return err
			}
			defer ledger.Close()

			out := cmd.OutOrStdout()
			for _, id := range args {
				if err := client.DeleteNotebook(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				removed := int64(0)
				if !keepJobs {
					removed, err = ledger.DeleteByNotebook(cmd.Context(), id)
					if err != nil {
						ctx.log().Warn("forget jobs failed", logging.String(logging.FieldNotebookID, id), logging.Error(err))
					}
				}
				fmt.Fprintf(out, "Deleted notebook %s (%d job(s) forgotten)\n", id, removed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepJobs, "keep-jobs", false, "Keep ledger entries for the deleted notebooks")
	return cmd
}

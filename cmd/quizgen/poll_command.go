package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "poll <notebook-id> <artifact-id>",
		Short: "Check whether a requested quiz is ready",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := ctx.newQuizService()
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := svc.Poll(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, resp)
			}
			if resp.Status != "completed" {
				fmt.Fprintln(cmd.OutOrStdout(), "Quiz is still being generated; try again shortly.")
				return nil
			}
			renderQuiz(cmd.OutOrStdout(), resp.Quiz)
			return nil
		},
	}
}

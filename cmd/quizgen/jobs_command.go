package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"quizgen/internal/api"
	"quizgen/internal/jobs"
	"quizgen/internal/quiz"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the local job ledger",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

// jobDetail is the JSON form of `jobs show`: the ledger row plus its cached quiz.
type jobDetail struct {
	api.Job
	Quiz []quiz.Question `json:"quiz,omitempty"`
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job and its cached quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := ctx.openJobs()
			if err != nil {
				return err
			}
			defer ledger.Close()

			job, err := ledger.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("job %s not found", args[0])
			}
			detail := jobDetail{Job: api.FromJob(job), Quiz: job.Questions}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, detail)
			}
			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Job", detail.ID},
				{"Status", colorStatus(detail.Status)},
				{"Title", detail.Title},
				{"Notebook", detail.NotebookID},
				{"Artifact", detail.ArtifactID},
				{"Polls", strconv.Itoa(detail.PollCount)},
				{"Created", detail.CreatedAt},
			}
			if detail.ErrorMessage != "" {
				rows = append(rows, []string{"Error", detail.ErrorMessage})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
			if len(detail.Quiz) > 0 {
				renderQuiz(out, detail.Quiz)
			}
			return nil
		},
	}
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit    int
		statuses []string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent generation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := ctx.openJobs()
			if err != nil {
				return err
			}
			defer ledger.Close()

			filter := make([]jobs.Status, 0, len(statuses))
			for _, value := range statuses {
				status := jobs.Status(strings.ToLower(strings.TrimSpace(value)))
				if !status.Valid() {
					return fmt.Errorf("unknown status %q (want pending, completed, or failed)", value)
				}
				filter = append(filter, status)
			}
			list, err := ledger.List(cmd.Context(), limit, filter...)
			if err != nil {
				return err
			}
			items := api.FromJobs(list)
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, api.JobListResponse{Items: items})
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.ID,
					colorStatus(item.Status),
					item.Title,
					item.NotebookID,
					item.ArtifactID,
					strconv.Itoa(item.QuestionCount),
					item.CreatedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Status", "Title", "Notebook", "Artifact", "Questions", "Created"},
				rows,
				5,
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show (0 for all)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

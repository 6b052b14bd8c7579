package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quizgen/internal/api"
	"quizgen/internal/config"
	"quizgen/internal/quiz"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultWaitTimeout  = 5 * time.Minute
)

type generateResult struct {
	api.GenerateResponse
	Quiz []quiz.Question `json:"quiz,omitempty"`
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		title    string
		text     string
		wait     bool
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate [file|-]",
		Short: "Upload text to a new notebook and request a quiz",
		Long: "Creates a scratch notebook, adds the text as its only source, and asks\n" +
			"NotebookLM for a quiz. Text comes from --text, a file argument, or stdin.\n" +
			"With --wait the command polls until the quiz is ready.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, inferredTitle, err := readGenerateInput(cmd, text, args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(title) == "" {
				title = inferredTitle
			}

			svc, cleanup, err := ctx.newQuizService()
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := svc.Generate(cmd.Context(), api.GenerateRequest{Text: body, Title: title})
			if err != nil {
				return err
			}
			result := generateResult{GenerateResponse: resp}
			if wait {
				poll, err := waitForQuiz(cmd.Context(), svc, resp.NotebookID, resp.ArtifactID, interval, timeout)
				if err != nil {
					return err
				}
				result.Status = poll.Status
				result.Quiz = poll.Quiz
				if ctx.wantJSON(cmd) {
					return writeJSON(cmd, result)
				}
				renderQuiz(cmd.OutOrStdout(), poll.Quiz)
				return nil
			}

			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Job", resp.JobID},
					{"Notebook", resp.NotebookID},
					{"Source", resp.SourceID},
					{"Artifact", resp.ArtifactID},
					{"Status", colorStatus(resp.Status)},
				},
			))
			fmt.Fprintf(out, "Check progress with: quizgen poll %s %s\n", resp.NotebookID, resp.ArtifactID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to the file name)")
	cmd.Flags().StringVar(&text, "text", "", "Source text to upload instead of a file")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the quiz is ready")
	cmd.Flags().DurationVar(&interval, "interval", defaultPollInterval, "Delay between polls when waiting")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultWaitTimeout, "Give up waiting after this long")
	return cmd
}

func readGenerateInput(cmd *cobra.Command, text string, args []string) (string, string, error) {
	if strings.TrimSpace(text) != "" {
		if len(args) > 0 {
			return "", "", errors.New("pass either --text or a file, not both")
		}
		return text, "", nil
	}
	if len(args) == 0 || args[0] == "-" {
		in := cmd.InOrStdin()
		if len(args) == 0 && isTerminal(in) {
			return "", "", errors.New("no input: pass --text, a file, or pipe text on stdin")
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "", nil
	}

	path, err := config.ExpandPath(args[0])
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return string(data), name, nil
}

// waitForQuiz polls until the quiz completes, the timeout passes, or ctx ends.
func waitForQuiz(ctx context.Context, svc *api.QuizService, notebookID, artifactID string, interval, timeout time.Duration) (api.PollResponse, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		resp, err := svc.Poll(waitCtx, notebookID, artifactID)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return api.PollResponse{}, timeoutError(notebookID, artifactID, timeout)
			}
			return api.PollResponse{}, err
		}
		if resp.Status == "completed" {
			return resp, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return api.PollResponse{}, ctx.Err()
			}
			return api.PollResponse{}, timeoutError(notebookID, artifactID, timeout)
		case <-ticker.C:
		}
	}
}

func timeoutError(notebookID, artifactID string, timeout time.Duration) error {
	return fmt.Errorf("quiz not ready after %s; resume with `quizgen poll %s %s`", timeout, notebookID, artifactID)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"quizgen/internal/jobs"
	"quizgen/internal/quiz"
)

var (
	correctOption = color.New(color.FgGreen, color.Bold)
	statusColors  = map[string]*color.Color{
		string(jobs.StatusPending):   color.New(color.FgYellow),
		string(jobs.StatusCompleted): color.New(color.FgGreen),
		string(jobs.StatusFailed):    color.New(color.FgRed),
	}
)

// colorStatus tints a job status for table output. color disables itself
// when NO_COLOR is set or stdout is not a terminal.
func colorStatus(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// wantJSON reports whether output should be JSON: forced by --json, or
// because stdout is not a terminal.
func (c *commandContext) wantJSON(cmd *cobra.Command) bool {
	if c.jsonFlag != nil && *c.jsonFlag {
		return true
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderQuiz(out io.Writer, questions []quiz.Question) {
	rows := make([][]string, 0, len(questions))
	for i, q := range questions {
		options := make([]string, 0, len(q.Options))
		for j, opt := range q.Options {
			line := fmt.Sprintf("  %c. %s", 'A'+rune(j%26), opt.Text)
			if opt.IsCorrect {
				line = correctOption.Sprintf("* %c. %s", 'A'+rune(j%26), opt.Text)
			}
			options = append(options, line)
		}
		text := q.Question
		if q.CorrectCount() == 0 {
			text += "\n(no option marked correct)"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), text, strings.Join(options, "\n")})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Question", "Options"}, rows, 0))
	fmt.Fprintln(out, "* marks the correct option")
}

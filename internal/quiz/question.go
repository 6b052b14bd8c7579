package quiz

import "strings"

// Question is one multiple-choice question.
type Question struct {
	Question string   `json:"question"`
	Options  []Option `json:"options"`
}

// Option is one answer choice.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// CorrectCount returns how many options are flagged correct.
func (q Question) CorrectCount() int {
	n := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			n++
		}
	}
	return n
}

// cleanQuestions drops questions without text or without options.
func cleanQuestions(questions []Question) []Question {
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		options := make([]Option, 0, len(q.Options))
		for _, opt := range q.Options {
			opt.Text = strings.TrimSpace(opt.Text)
			if opt.Text == "" {
				continue
			}
			options = append(options, opt)
		}
		if len(options) == 0 {
			continue
		}
		q.Options = options
		out = append(out, q)
	}
	return out
}

package quiz

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonArrayPattern = regexp.MustCompile(`\[\s*\{[\s\S]*\}\s*\]`)
	codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// ChatPrompt builds the free-form request asking for count questions in
// language using the Question JSON shape.
func ChatPrompt(count int, language string) string {
	if count <= 0 {
		count = 5
	}
	if strings.TrimSpace(language) == "" {
		language = "English"
	}
	return fmt.Sprintf(`Create %d multiple-choice questions in %s based on the content of this document.
Return a JSON array of questions.
Each question has this structure:
{
  "question": "Question text?",
  "options": [
    {"text": "Option A", "isCorrect": true},
    {"text": "Option B", "isCorrect": false},
    {"text": "Option C", "isCorrect": false},
    {"text": "Option D", "isCorrect": false}
  ]
}
Return only the JSON array, with no other text.`, count, language)
}

// chatQuestion is the loosely typed form of a question in a chat reply.
// Models sometimes quote booleans or numbers, so option fields decode as any.
type chatQuestion struct {
	Question string `json:"question"`
	Options  []struct {
		Text      any `json:"text"`
		IsCorrect any `json:"isCorrect"`
	} `json:"options"`
}

func (c chatQuestion) question() Question {
	q := Question{Question: c.Question, Options: make([]Option, 0, len(c.Options))}
	for _, opt := range c.Options {
		q.Options = append(q.Options, Option{Text: optionText(opt.Text), IsCorrect: truthy(opt.IsCorrect)})
	}
	return q
}

// ParseChatReply locates a JSON array of question objects in a free-text chat
// reply. ok=false means no usable quiz was present.
func ParseChatReply(text string) ([]Question, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	candidates := make([]string, 0, 2)
	if match := jsonArrayPattern.FindString(text); match != "" {
		candidates = append(candidates, match)
	}
	if fenced := codeFencePattern.FindStringSubmatch(text); len(fenced) == 2 {
		candidates = append(candidates, fenced[1])
	}
	candidates = append(candidates, text)

	for _, candidate := range candidates {
		var decoded []chatQuestion
		if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
			continue
		}
		questions := make([]Question, 0, len(decoded))
		for _, c := range decoded {
			questions = append(questions, c.question())
		}
		if cleaned := cleanQuestions(questions); len(cleaned) > 0 {
			return cleaned, true
		}
	}
	return nil, false
}

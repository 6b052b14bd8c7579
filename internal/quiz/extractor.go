package quiz

import "fmt"

// quizVariantCode is the leading element of the config tuple that precedes
// question data in some payload layouts.
const quizVariantCode = 2

// Strategy is one named way of locating the question list inside an
// artifact payload. Match returns ok=false when its shape is absent.
type Strategy struct {
	Name  string
	Match func(payload []any) (items []any, ok bool)
}

// Strategies are tried in order by Extract.
var Strategies = []Strategy{
	{Name: "fixed-slot", Match: matchFixedSlot},
	{Name: "config-header-scan", Match: matchConfigHeaderScan},
	{Name: "header-slot", Match: matchHeaderSlot},
}

// Extract runs Strategies against payload and returns the questions from the
// first strategy whose candidate list holds at least one well-formed
// question, along with that strategy's name. ok=false means inconclusive.
func Extract(payload any) ([]Question, string, bool) {
	return ExtractWith(Strategies, payload)
}

// ExtractWith is Extract with an explicit strategy list.
func ExtractWith(strategies []Strategy, payload any) ([]Question, string, bool) {
	root, ok := payload.([]any)
	if !ok || len(root) <= 1 {
		return nil, "", false
	}
	for _, strategy := range strategies {
		items, ok := strategy.Match(root)
		if !ok {
			continue
		}
		questions := decodeItems(items)
		if len(questions) > 0 {
			return questions, strategy.Name, true
		}
	}
	return nil, "", false
}

// payload[2] holds the list directly.
func matchFixedSlot(payload []any) ([]any, bool) {
	if len(payload) <= 2 {
		return nil, false
	}
	return arrayOfArrays(payload[2])
}

// payload[1] is a [2, <scalar>, ...] config tuple; the list is the first later
// slot whose first element is itself an array.
func matchConfigHeaderScan(payload []any) ([]any, bool) {
	if !isConfigHeader(payload[1]) {
		return nil, false
	}
	for i := 2; i < len(payload); i++ {
		if items, ok := arrayOfArrays(payload[i]); ok {
			return items, true
		}
	}
	return nil, false
}

// payload[1] holds the list when it is not a config tuple.
func matchHeaderSlot(payload []any) ([]any, bool) {
	if isConfigHeader(payload[1]) {
		return nil, false
	}
	return arrayOfArrays(payload[1])
}

func isConfigHeader(value any) bool {
	header, ok := value.([]any)
	if !ok || len(header) == 0 {
		return false
	}
	code, ok := header[0].(float64)
	if !ok || code != quizVariantCode {
		return false
	}
	if len(header) > 1 {
		if _, nested := header[1].([]any); nested {
			return false
		}
	}
	return true
}

func arrayOfArrays(value any) ([]any, bool) {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	if _, ok := items[0].([]any); !ok {
		return nil, false
	}
	return items, true
}

// decodeItems keeps elements shaped [question, [[text, flag], ...]].
func decodeItems(items []any) []Question {
	questions := make([]Question, 0, len(items))
	for _, item := range items {
		entry, ok := item.([]any)
		if !ok || len(entry) < 2 {
			continue
		}
		text, ok := entry[0].(string)
		if !ok {
			continue
		}
		rawOptions, ok := entry[1].([]any)
		if !ok {
			continue
		}
		q := Question{Question: text}
		for _, rawOpt := range rawOptions {
			pair, ok := rawOpt.([]any)
			if !ok || len(pair) == 0 {
				continue
			}
			var flag any
			if len(pair) > 1 {
				flag = pair[1]
			}
			q.Options = append(q.Options, Option{Text: optionText(pair[0]), IsCorrect: truthy(flag)})
		}
		questions = append(questions, q)
	}
	return cleanQuestions(questions)
}

func optionText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// truthy follows JavaScript truthiness for decoded JSON values.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

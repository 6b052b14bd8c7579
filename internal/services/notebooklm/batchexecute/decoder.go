package batchexecute

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Result is the outcome of looking up one call in a decoded response.
//
// Found reports whether a matching wrb.fr tuple exists. AuthFailure is set
// instead of Value when that tuple carries the session-rejected code.
type Result struct {
	Value       any
	Found       bool
	AuthFailure bool
}

// ParseFrames strips the XSSI guard and decodes every JSON frame in raw.
// A line holding only a decimal length introduces a chunk: usually the next
// line, but a chunk with embedded newlines is joined back together up to the
// declared length. Lines that do not parse are skipped.
func ParseFrames(raw string) []any {
	raw = strings.TrimPrefix(raw, XSSIPrefix)
	lines := strings.Split(raw, "\n")

	frames := make([]any, 0, len(lines)/2+1)
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if isByteCount(line) {
			declared, _ := strconv.Atoi(line)
			if value, consumed, ok := decodeChunk(lines[i+1:], declared); ok {
				frames = append(frames, value)
				i += consumed
			} else {
				i++
			}
			continue
		}
		if value, ok := decodeJSON(line); ok {
			frames = append(frames, value)
		}
	}
	return frames
}

// ExtractResult scans frames for ["wrb.fr", rpcID, payload, ...] and decodes
// the payload. Unrelated tuples are ignored.
func ExtractResult(frames []any, rpcID string) Result {
	for _, frame := range frames {
		items, ok := frame.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			tuple, ok := item.([]any)
			if !ok || len(tuple) < 2 {
				continue
			}
			if tag, _ := tuple[0].(string); tag != ResultTag {
				continue
			}
			if id, _ := tuple[1].(string); id != rpcID {
				continue
			}
			if isAuthFailure(tuple) {
				return Result{Found: true, AuthFailure: true}
			}
			var payload any
			if len(tuple) > 2 {
				payload = tuple[2]
			}
			return Result{Value: decodePayload(payload), Found: true}
		}
	}
	return Result{}
}

// HasAuthFailure reports whether any wrb.fr tuple in frames carries the
// session-rejected code, regardless of its rpc id.
func HasAuthFailure(frames []any) bool {
	found := false
	walkTuples(frames, func(tuple []any) bool {
		if tag, _ := tuple[0].(string); tag == ResultTag && isAuthFailure(tuple) {
			found = true
			return false
		}
		return true
	})
	return found
}

// FindCSRFRepair searches frames depth-first for a ["xsrf", token] tuple.
func FindCSRFRepair(frames []any) (string, bool) {
	var token string
	walkTuples(frames, func(tuple []any) bool {
		if tag, _ := tuple[0].(string); tag != CSRFTag {
			return true
		}
		if value, ok := tuple[1].(string); ok && value != "" {
			token = value
			return false
		}
		return true
	})
	return token, token != ""
}

// ExtractChatAnswer returns the longest answer text found in a streamed chat
// response. Each wrb.fr payload contributes its inner[0][0] string, or the
// first string longer than 50 characters found depth-first.
func ExtractChatAnswer(frames []any) string {
	var longest string
	consider := func(candidate string) {
		if utf8.RuneCountInString(candidate) > utf8.RuneCountInString(longest) {
			longest = candidate
		}
	}
	walkTuples(frames, func(tuple []any) bool {
		if tag, _ := tuple[0].(string); tag != ResultTag || len(tuple) < 3 {
			return true
		}
		switch payload := decodePayload(tuple[2]).(type) {
		case string:
			consider(payload)
		case []any:
			if text, ok := answerSlot(payload); ok {
				consider(text)
			} else {
				consider(firstLongString(payload, 50))
			}
		}
		return true
	})
	return longest
}

func answerSlot(payload []any) (string, bool) {
	if len(payload) == 0 {
		return "", false
	}
	first, ok := payload[0].([]any)
	if !ok || len(first) == 0 {
		return "", false
	}
	text, ok := first[0].(string)
	return text, ok && text != ""
}

func firstLongString(node any, minRunes int) string {
	switch v := node.(type) {
	case string:
		if utf8.RuneCountInString(v) > minRunes {
			return v
		}
	case []any:
		for _, child := range v {
			if found := firstLongString(child, minRunes); found != "" {
				return found
			}
		}
	}
	return ""
}

// walkTuples visits every array with at least two elements, depth-first.
// Returning false from visit stops the walk.
func walkTuples(node any, visit func([]any) bool) bool {
	arr, ok := node.([]any)
	if !ok {
		return true
	}
	if len(arr) >= 2 {
		if !visit(arr) {
			return false
		}
	}
	for _, child := range arr {
		if !walkTuples(child, visit) {
			return false
		}
	}
	return true
}

func isAuthFailure(tuple []any) bool {
	if len(tuple) < 6 {
		return false
	}
	status, ok := tuple[5].([]any)
	if !ok || len(status) == 0 {
		return false
	}
	code, ok := status[0].(float64)
	return ok && code == AuthFailureCode
}

func decodePayload(payload any) any {
	text, ok := payload.(string)
	if !ok {
		return payload
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		if value, ok := decodeJSON(trimmed); ok {
			return value
		}
	}
	return text
}

func decodeJSON(text string) (any, bool) {
	if text == "" {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, false
	}
	return value, true
}

// decodeChunk decodes the chunk that follows a length line, joining lines
// until the JSON parses or the text outgrows the declared length. The length
// is compared in runes; the service counts UTF-16 units, which is never less.
func decodeChunk(lines []string, declared int) (any, int, bool) {
	var buf strings.Builder
	for j, line := range lines {
		if j > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		text := buf.String()
		if value, ok := decodeJSON(strings.TrimSpace(text)); ok {
			return value, j + 1, true
		}
		if utf8.RuneCountInString(text) > declared {
			break
		}
	}
	return nil, 0, false
}

func isByteCount(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Package quiz defines the question model returned to callers and the
// best-effort parsers that recover it from NotebookLM output.
//
// Studio artifacts carry quizzes as loosely shaped nested arrays whose layout
// is observed, not documented. Extraction therefore runs an ordered list of
// named strategies and stops at the first one that yields at least one
// well-formed question. When none match, the result is inconclusive rather
// than an error and callers fall back to chat generation, whose free-text
// reply is parsed by ParseChatReply.
package quiz

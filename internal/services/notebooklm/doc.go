// Package notebooklm is the quiz-generation client for NotebookLM.
//
// Client composes the session store, the batchexecute codec, and the quiz
// extractor into the operations the rest of quizgen consumes: CreateNotebook,
// AddTextSource, CreateQuiz, and PollStudio, plus notebook housekeeping and the
// chat-based fallback used when a studio artifact cannot be parsed.
//
// Every RPC goes through one bounded exchange: at most two HTTP attempts, with
// a session refresh or an anti-forgery token repair between them. Transport
// errors are never retried here; polling cadence belongs to the caller.
package notebooklm

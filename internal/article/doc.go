// Package article turns a transcript into a structured blog article using a
// text-generation backend.
//
// # Entry Points
//
// New: construct a Generator around a Backend and per-job Settings.
// Generator.Generate: build the prompt, call the backend, parse the answer
// and run at most one expansion pass when the text is too short.
// NewBackend: pick the configured backend (llmkit for anthropic, the
// OpenAI-compatible client otherwise).
//
// # Response Parsing
//
// Answers are decoded as JSON directly, then from a ```json fenced block, then
// from the first brace-delimited span nested at most one level deep. Literal
// control characters inside JSON strings are tolerated.
//
// # Retries
//
// Only backend errors mentioning "overloaded" are retried. The delay before
// attempt n+1 is 2^(n-1) seconds plus up to one second of jitter. Parse
// failures are never retried.
package article

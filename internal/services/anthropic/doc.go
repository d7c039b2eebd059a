// Package anthropic is a buffered article backend for the Anthropic Messages
// API built on github.com/aktagon/llmkit.
//
// The llmkit call has no context parameter; Complete runs it on a goroutine
// and returns early when the context is cancelled. The abandoned call keeps
// running until the HTTP client gives up.
package anthropic

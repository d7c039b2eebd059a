// Package llm provides a client for OpenAI-compatible chat completion
// endpoints (OpenRouter, OpenAI, local gateways).
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send one prompt, receive the full text answer. With
// Config.Stream the answer is read as server-sent events and the deltas are
// joined into a single buffer.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// By default a single attempt is made and errors are returned as-is, so the
// article generator can apply its own overload policy. WithRetryMaxAttempts
// enables retries on HTTP 408/429/5xx and network timeouts with exponential
// backoff (base 1s, max 10s). Context cancellation aborts retries immediately.
package llm

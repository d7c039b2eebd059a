// Package notifications delivers pipeline events to ntfy.
//
// NewService returns a no-op notifier when no topic is configured, so callers
// never need to check. Completion and error events can be switched off
// independently in [notifications].
package notifications

// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, stage names, client addresses and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from
//     downloaders, transcribers and HTTP backends classify consistently.
//
// Integrations live in subpackages (llm, anthropic, whisperx).
package services

// Package config loads, normalizes, and validates podpress configuration.
//
// The TOML file decodes onto Default(), environment fallbacks fill in
// credentials, and Validate rejects settings the pipeline cannot run with.
// WithOverrides produces a per-job copy from a nested override tree so a
// single request can adjust article or publishing settings without touching
// the shared configuration.
package config

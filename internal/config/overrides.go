package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// sectionAliases maps legacy section names accepted in override trees.
var sectionAliases = map[string]string{
	"claude":  "generation",
	"llm":     "generation",
	"whisper": "transcription",
	"limit":   "limits",
}

// overridableKeys lists the per-job keys a request may change. Paths, limits,
// backend endpoints and credentials stay under the operator's control.
var overridableKeys = map[string]map[string]bool{
	"article": {
		"min_characters": true,
		"custom_style":   true,
		"reference_url":  true,
		"disclaimer":     true,
		"embed_base_url": true,
	},
	"transcription": {
		"model":    true,
		"language": true,
	},
	"generation": {
		"model":       true,
		"temperature": true,
		"max_tokens":  true,
	},
	"wordpress": {
		"url":      true,
		"username": true,
		"password": true,
		"category": true,
		"status":   true,
		"timeout":  true,
	},
}

// checkOverrideKeys rejects keys outside overridableKeys. A WordPress url may
// only change together with a non-empty username and password so the
// configured credentials are never sent to another site.
func checkOverrideKeys(section string, values map[string]any) error {
	allowed, ok := overridableKeys[section]
	if !ok {
		return fmt.Errorf("override section %q cannot be changed per job", section)
	}
	present := make(map[string]bool, len(values))
	for key := range values {
		name := strings.ToLower(strings.TrimSpace(key))
		if !allowed[name] {
			return fmt.Errorf("override %s.%s cannot be changed per job", section, key)
		}
		if text, ok := values[key].(string); !ok || strings.TrimSpace(text) != "" {
			present[name] = true
		}
	}
	if section == "wordpress" && present["url"] && (!present["username"] || !present["password"]) {
		return errors.New("override wordpress.url requires wordpress.username and wordpress.password")
	}
	return nil
}

// WithOverrides returns a copy of the configuration with the nested override
// tree merged on top. Only leaf keys present in the tree change; sections and
// keys that are absent keep their current values. The receiver is never
// modified. Only keys in overridableKeys are accepted.
func (c *Config) WithOverrides(overrides map[string]any) (*Config, error) {
	clone := *c
	if len(overrides) == 0 {
		return &clone, nil
	}

	tree := make(map[string]any, len(overrides))
	for key, value := range overrides {
		section := strings.ToLower(strings.TrimSpace(key))
		if alias, ok := sectionAliases[section]; ok {
			section = alias
		}
		nested, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("override %q: expected a table, got %T", key, value)
		}
		if err := checkOverrideKeys(section, nested); err != nil {
			return nil, err
		}
		if existing, ok := tree[section].(map[string]any); ok {
			for k, v := range nested {
				existing[k] = normalizeOverrideValue(v)
			}
			continue
		}
		tree[section] = normalizeOverrideValue(nested)
	}

	data, err := toml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode overrides: %w", err)
	}
	if err := toml.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("apply overrides: %w", err)
	}
	if err := clone.normalize(); err != nil {
		return nil, err
	}
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	return &clone, nil
}

// normalizeOverrideValue converts integral floats (as produced by JSON
// decoding) into integers so they decode onto int fields.
func normalizeOverrideValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeOverrideValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeOverrideValue(item)
		}
		return out
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	default:
		return v
	}
}

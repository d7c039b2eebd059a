package article

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGeneration marks every failure returned by Generator.Generate.
var ErrGeneration = errors.New("generation failed")

var (
	errEmptyTranscript = errors.New("transcript is empty")
	errNoBackend       = errors.New("no backend configured")
	errNoJSON          = errors.New("no JSON object found in response")
)

// GenerationError describes a failed generation. Snippet holds the start of
// the raw backend answer when parsing failed.
type GenerationError struct {
	Op      string
	Snippet string
	Err     error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("generation")
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Snippet != "" {
		fmt.Fprintf(&b, " (response_snippet=%s)", e.Snippet)
	}
	return b.String()
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.Err}
}

const snippetLimit = 500

func snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := strings.Join(strings.Fields(replacer.Replace(trimmed)), " ")
	runes := []rune(clean)
	if len(runes) > snippetLimit {
		clean = string(runes[:snippetLimit]) + "..."
	}
	return clean
}

package article

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	// A brace span whose inner braces do not nest further.
	braceSpan = regexp.MustCompile(`\{(?:[^{}]|\{[^{}]*\})*\}`)
)

type rawArticle struct {
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Summary string          `json:"summary"`
	Tags    json.RawMessage `json:"tags"`
}

// parseArticle decodes a backend answer. The whole text is tried first, then
// a ```json fence, then the first brace span.
func parseArticle(raw string) (Article, error) {
	var lastErr error
	for _, candidate := range candidates(raw) {
		result, err := decodeArticle(candidate)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errNoJSON
	}
	return Article{}, &GenerationError{Op: "parse response", Snippet: snippet(raw), Err: lastErr}
}

func candidates(raw string) []string {
	out := []string{strings.TrimSpace(raw)}
	if match := fencedJSON.FindStringSubmatch(raw); match != nil {
		out = append(out, strings.TrimSpace(match[1]))
	}
	if span := braceSpan.FindString(raw); span != "" {
		out = append(out, span)
	}
	return out
}

func decodeArticle(text string) (Article, error) {
	if text == "" {
		return Article{}, errNoJSON
	}
	var payload rawArticle
	if err := json.Unmarshal([]byte(escapeControlChars(text)), &payload); err != nil {
		return Article{}, err
	}
	result := Article{
		Title:   strings.TrimSpace(payload.Title),
		Content: strings.TrimSpace(payload.Content),
		Summary: strings.TrimSpace(payload.Summary),
		Tags:    decodeTags(payload.Tags),
	}
	if result.Title == "" {
		return Article{}, errors.New("title is empty")
	}
	if result.Content == "" {
		return Article{}, errors.New("content is empty")
	}
	return result, nil
}

// decodeTags accepts a JSON array or a comma separated string.
func decodeTags(raw json.RawMessage) []string {
	tags := []string{}
	if len(raw) == 0 {
		return tags
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return tags
		}
		list = strings.FieldsFunc(joined, func(r rune) bool { return r == ',' || r == '、' })
	}
	for _, tag := range list {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// escapeControlChars escapes raw control characters that appear inside JSON
// string literals. Models often emit literal newlines in long HTML values.
func escapeControlChars(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inString := false
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString && r < 0x20:
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteString(`\u00`)
				b.WriteByte("0123456789abcdef"[r>>4])
				b.WriteByte("0123456789abcdef"[r&0xf])
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

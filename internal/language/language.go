package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// English names accepted in addition to BCP 47 tags.
var words = map[string]string{
	"japanese":   "ja",
	"english":    "en",
	"chinese":    "zh",
	"korean":     "ko",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"日本語":        "ja",
}

// Normalize converts a hint such as "ja", "jpn", "ja-JP" or "Japanese" to a
// two-letter code. An empty hint yields "" so the engine auto-detects.
func Normalize(hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.EqualFold(hint, "auto") {
		return "", nil
	}
	if code, ok := words[strings.ToLower(hint)]; ok {
		return code, nil
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(hint, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("unknown language %q: %w", hint, err)
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return "", fmt.Errorf("unknown language %q", hint)
	}
	code := base.String()
	if len(code) != 2 {
		return "", fmt.Errorf("language %q has no two-letter code", hint)
	}
	return code, nil
}

// DisplayName returns the English name for code, or code itself when unknown.
func DisplayName(code string) string {
	tag, err := xlanguage.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

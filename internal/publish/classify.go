package publish

import (
	"net/url"
	"strings"
)

// loginSucceeded reports whether the post-login URL is inside wp-admin and
// not back on the login page.
func loginSucceeded(finalURL string) bool {
	return strings.Contains(finalURL, "wp-admin") && !strings.Contains(finalURL, "login")
}

type outcome int

const (
	outcomeUnknown outcome = iota
	outcomeSaved
	outcomeListed
)

// classifySubmission inspects the URL the editor redirected to. post.php
// carrying message=1 or message=6 is a success, as is any landing on
// edit.php. The match is by prefix, so message=10 (draft saved) also counts.
func classifySubmission(finalURL string) outcome {
	switch {
	case strings.Contains(finalURL, "post.php") &&
		(strings.Contains(finalURL, "message=1") || strings.Contains(finalURL, "message=6")):
		return outcomeSaved
	case strings.Contains(finalURL, "edit.php"):
		return outcomeListed
	default:
		return outcomeUnknown
	}
}

// postIDFromURL extracts the post query parameter, if any.
func postIDFromURL(finalURL string) string {
	parsed, err := url.Parse(finalURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("post")
}

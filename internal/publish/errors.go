package publish

import (
	"errors"
	"fmt"
)

// ErrInvalidSettings is returned before any network call when the site,
// username or password is missing.
var ErrInvalidSettings = errors.New("wordpress settings incomplete: site url, username and password are required")

// AuthError reports a failed login.
type AuthError struct {
	Reason string
	URL    string
	Err    error
}

func (e *AuthError) Error() string {
	msg := "wordpress login failed: " + e.Reason
	if e.URL != "" {
		msg += fmt.Sprintf(" (url=%s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// PublishError reports a failed submission after a successful login.
// ServerMessage holds the text of the editor's error notice when present.
type PublishError struct {
	Reason        string
	URL           string
	ServerMessage string
	Err           error
}

func (e *PublishError) Error() string {
	msg := "wordpress publish failed: " + e.Reason
	if e.ServerMessage != "" {
		msg += ": " + e.ServerMessage
	}
	if e.URL != "" {
		msg += fmt.Sprintf(" (url=%s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PublishError) Unwrap() error { return e.Err }

// Package publish submits articles to a WordPress site by driving its HTML
// login and classic editor forms over a cookie session.
//
// A call moves through INIT → AUTHENTICATING → AUTH_OK | AUTH_FAILED and,
// once authenticated, SUBMITTING → PUBLISHED | PUBLISH_FAILED. Every call
// gets a fresh cookie jar; nothing is shared between calls.
//
// All markup assumptions live in forms.go and classify.go.
//
// Submissions are never retried. An answer that is neither a known success
// redirect nor an explicit error element counts as a failure, because a second
// attempt could create a duplicate post.
package publish

package publish

// State is a step of the publish state machine.
type State string

const (
	StateInit           State = "INIT"
	StateAuthenticating State = "AUTHENTICATING"
	StateAuthOK         State = "AUTH_OK"
	StateAuthFailed     State = "AUTH_FAILED"
	StateSubmitting     State = "SUBMITTING"
	StatePublished      State = "PUBLISHED"
	StatePublishFailed  State = "PUBLISH_FAILED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateAuthFailed, StatePublished, StatePublishFailed:
		return true
	default:
		return false
	}
}

// Result summarises a Submit call.
type Result struct {
	State    State
	PostID   string
	FinalURL string
}

package account

import "errors"

// The lifecycle service translates every provider- and store-level failure
// into this taxonomy at its boundary; handlers map it to HTTP status codes
// and callers never see provider-native error types.
var (
	// ErrConflict covers duplicate registration and deletion-in-progress conflicts.
	ErrConflict = errors.New("conflict")
	// ErrNotFound covers missing accounts and a missing local profile after auth.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized covers rejected OTPs and bad or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden covers login attempts against a pending-deletion account.
	ErrForbidden = errors.New("forbidden")
	// ErrBadRequest covers malformed input and re-scheduling an existing deletion.
	ErrBadRequest = errors.New("bad request")
	// ErrUpstream covers identity-provider timeouts and outages.
	ErrUpstream = errors.New("upstream unavailable")
)

// Error carries a caller-facing message together with its taxonomy kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func fail(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

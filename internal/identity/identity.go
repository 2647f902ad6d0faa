// Package identity wraps the hosted identity provider's REST API.
// The provider owns all credential state: OTP challenges, session tokens and
// refresh-token rotation. This package only relays calls and normalizes
// failures into a small set of sentinel errors.
package identity

import "errors"

var (
	// ErrRejected is returned when the provider refuses the supplied
	// credential (bad OTP, expired or already-rotated token).
	ErrRejected = errors.New("identity provider rejected the credential")
	// ErrUnavailable is returned on timeouts and connection failures.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Identity is the provider-owned view of an account.
type Identity struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	EmailConfirmed bool           `json:"email_confirmed"`
	Metadata       map[string]any `json:"user_metadata"`
}

// Session carries the provider-issued token pair. It is relayed to clients
// verbatim and never persisted locally.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// VerifyResult bundles the identity and session returned by a successful OTP
// verification or session refresh.
type VerifyResult struct {
	Identity Identity
	Session  Session
}

// OtpOptions controls how the provider handles an OTP send.
type OtpOptions struct {
	// CreateIfMissing lets the provider create an identity for an unknown
	// email. Registration sets this; login must not.
	CreateIfMissing bool
	// PurposeTag is recorded in the identity's metadata so flows can be
	// distinguished when debugging.
	PurposeTag string
}

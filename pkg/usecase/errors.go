package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Bad or stale request signature
	ErrAuthenticationFailure = errors.New("authentication failure")

	// Valid caller without the privilege the operation needs
	ErrAuthorizationDenied = errors.New("authorization denied")

	// Remote API reports the stored token is unusable
	ErrCredentialInvalid = errors.New("credential invalid")

	// Remote API unreachable or failed for a non-credential reason
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrStorageFailure    = errors.New("storage failure")
	ErrValidationFailure = errors.New("validation failure")
)

// Context keys for error values
const (
	TeamIDKey    = "team_id"
	UserIDKey    = "user_id"
	TriggerIDKey = "trigger_id"
)

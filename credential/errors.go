package credential

import "errors"

// Sentinel errors for credential management.
var (
	// ErrNoCredential is returned when no credential is present in the store.
	ErrNoCredential = errors.New("credential: no credential present")

	// ErrNoRefreshToken is returned when a refresh is attempted without a refresh token.
	ErrNoRefreshToken = errors.New("credential: no refresh token present")
)

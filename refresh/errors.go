package refresh

import "errors"

// Sentinel errors for refresh coordination.
var (
	// ErrSessionExpired is returned to every waiter of a refresh cycle
	// whose refresh call failed. The session has been terminated.
	ErrSessionExpired = errors.New("refresh: session expired")
)

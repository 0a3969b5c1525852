package transport

import "errors"

// Sentinel errors for the auth transport.
var (
	// ErrBodyNotReplayable is logged when a 401 response cannot be
	// recovered because the request body was consumed and the request
	// has no GetBody. The original 401 is forwarded in that case.
	ErrBodyNotReplayable = errors.New("transport: request body cannot be replayed")
)

// Package credential holds the bearer credential for an authenticated
// session and the collaborators that produce new ones.
//
// The Store is the single source of truth for the current credential.
// Request-handling code only ever reads snapshots from it; all writes
// (replace on refresh success, clear on refresh failure) are routed
// through the refresh coordinator's settlement path.
package credential

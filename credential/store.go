package credential

import (
	"context"
	"sync"
)

// Store is the single source of truth for the current credential.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: Current returns a snapshot; callers must not assume it
//   stays current after the call returns.
// - Writers: Set and Clear are reserved for the refresh coordinator's
//   settlement path (and initial authentication); request-handling
//   code must only read.
type Store interface {
	// Current returns a snapshot of the current credential.
	// The second return is false when no credential is present.
	Current() (Credential, bool)

	// Set replaces the current credential.
	Set(cred Credential)

	// Clear removes the current credential (logout).
	Clear()
}

// Refresher obtains a new credential from an identity service.
//
// Contract:
// - Concurrency: the refresh coordinator guarantees at most one call
//   is in flight at a time; implementations need not be reentrant.
// - Context: must honor cancellation/deadlines.
// - Errors: a non-nil error is fatal for the session.
type Refresher interface {
	// Refresh contacts the identity service and returns a new credential.
	Refresh(ctx context.Context) (Credential, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context) (Credential, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context) (Credential, error) {
	return f(ctx)
}

// MemoryStore is an in-process Store guarded by a RWMutex.
type MemoryStore struct {
	mu   sync.RWMutex
	cred Credential
	set  bool
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Current returns a snapshot of the current credential.
func (s *MemoryStore) Current() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, s.set
}

// Set replaces the current credential.
func (s *MemoryStore) Set(cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	s.set = true
}

// Clear removes the current credential.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
	s.set = false
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

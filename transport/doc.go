// Package transport provides the credential-attaching HTTP round
// tripper.
//
// Every outgoing request gets the current bearer credential attached.
// An unauthorized response is recovered transparently: the request
// joins the refresh coordinator's single-flight cycle and is replayed
// once with the new credential. Callers see either the response they
// asked for or a session-expired error, never an intermediate 401
// caused by an expired credential.
//
// The queuing strategy is dispatch-then-retry: requests are always
// dispatched eagerly with the best-known credential, and only a 401
// makes them wait on the coordinator.
package transport

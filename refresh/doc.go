// Package refresh implements the single-flight refresh coordinator.
//
// Any number of requests can fail unauthorized at once; the
// coordinator guarantees that exactly one refresh call is issued per
// burst, that every waiter receives the same settlement (new
// credential or shared error), and that a failed refresh terminates
// the session exactly once.
package refresh

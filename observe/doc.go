// Package observe provides observability primitives for the auth
// middleware: structured logging, OpenTelemetry metrics for the
// request/refresh flow, and refresh-cycle tracing.
//
// It is a pure instrumentation library: no execution, no transport,
// no I/O beyond exporter setup. Consumers wire the observer into the
// refresh coordinator and the auth transport.
package observe

// Package server runs the reference document backend over HTTP.
//
// It owns the listener lifecycle: startup, signal-driven cancellation via
// the caller's context and graceful shutdown that lets in-flight requests
// finish.
package server

// Package workers runs the client's long-lived background loops side by side
// and stops them together.
package workers

import "context"

// Worker is a background loop. Run blocks until ctx is done or the worker
// fails. Returning ctx.Err() after cancellation counts as a clean stop.
//
// Example implementation:
//
//	type MyWorker struct{}
//
//	func (w *MyWorker) Run(ctx context.Context) error {
//	    <-ctx.Done()
//	    return ctx.Err()
//	}
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc adapts a plain function to Worker.
type WorkerFunc func(ctx context.Context) error

func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

package server

import "context"

// Server is a transport server managed by this package.
type Server interface {
	// Run serves requests until ctx is done, then shuts down gracefully.
	// A clean shutdown returns nil.
	Run(ctx context.Context) error
}

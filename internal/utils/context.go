// Package utils provides general-purpose helper utilities
// used across different parts of the application.
// Includes tools for working with context, type-safe keys, HTTP response
// writing, HTTP client initialization, JWT token generation and validation,
// and identifier generation.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
// Implements the fmt.Stringer interface.
func (c contextKey) String() string {
	return string(c)
}

// OwnerIDCtxKey is the key used to store the authenticated owner identifier
// in the context. Used together with GetOwnerIDFromContext for type-safe
// retrieval.
//
// Example of writing a value to the context:
//
//	ctx := context.WithValue(ctx, utils.OwnerIDCtxKey, "owner-42")
var OwnerIDCtxKey = contextKey("ownerID")

// GetOwnerIDFromContext retrieves the owner identifier from the context.
//
// Returns ok == false when the value is missing, has an unexpected type or
// is empty.
func GetOwnerIDFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(OwnerIDCtxKey).(string)
	return ownerID, ok && ownerID != ""
}

package models

import "errors"

var (
	// ErrMalformedDocument is returned when a remote document is missing a
	// required field or carries a value of the wrong shape.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnknownEntityType is returned for an entity type or collection name
	// that no entity has registered.
	ErrUnknownEntityType = errors.New("unknown entity type")
)

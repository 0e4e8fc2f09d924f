package service

import "errors"

var (
	// ErrLocalWrite wraps a LocalStore failure during RecordMutation. It is the
	// only sync error returned to application code.
	ErrLocalWrite = errors.New("local write failed")

	// ErrPermanentFailure marks an operation that will not succeed by
	// retrying, either because the error is not retryable or because every
	// attempt was used.
	ErrPermanentFailure = errors.New("permanent sync failure")

	// ErrOwnershipMismatch is returned for a record owned by another user.
	ErrOwnershipMismatch = errors.New("record owned by another user")

	// ErrConflictResolution is returned when two versions of a record cannot
	// be reconciled. The record falls back to deletion.
	ErrConflictResolution = errors.New("conflict resolution failed")

	// ErrOperationDeferred means the operation was not attempted, or was
	// interrupted between attempts, because sync stopped.
	ErrOperationDeferred = errors.New("operation deferred")

	// ErrMigrationIncomplete means some local records could not be migrated
	// and remain pending.
	ErrMigrationIncomplete = errors.New("local data migration incomplete")

	ErrSyncNotStarted  = errors.New("sync not started")
	ErrNoOwner         = errors.New("owner id is empty")
	ErrNilRecord       = errors.New("nil record")
	ErrUnknownMutation = errors.New("unknown mutation kind")

	ErrUnknownCollection     = errors.New("unknown collection")
	ErrInvalidDataProvided   = errors.New("invalid data provided")
	ErrDocumentIDMismatch    = errors.New("document id does not match path")
	ErrVersionIsNotSpecified = errors.New("version is not specified")

	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrTokenCreationFailed     = errors.New("token creation failed")
)

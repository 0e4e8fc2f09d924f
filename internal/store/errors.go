package store

import "errors"

// Sentinel errors returned by store methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrRecordNotFound is returned when a local record (identified by entity
	// type and id) does not exist.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrRecordExists is returned by Create when a record with the same
	// entity type and id is already stored.
	ErrRecordExists = errors.New("record already exists")

	// ErrDocumentNotFound is returned when a remote document does not exist in
	// the requested collection.
	ErrDocumentNotFound = errors.New("document was not found")

	// ErrOwnerMismatch is returned when a document exists but belongs to a
	// different owner than the caller.
	ErrOwnerMismatch = errors.New("document belongs to another owner")

	// ErrTemporarilyUnavailable wraps database failures that may succeed when
	// retried (lost connection, serialization failure, deadlock).
	ErrTemporarilyUnavailable = errors.New("storage temporarily unavailable")
)

// Low-level database operation errors. These are returned (or wrapped) by
// store methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when iterating a multi-row result fails.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrEncodingDocument is returned when a record cannot be serialized to
	// or from its stored JSON form.
	ErrEncodingDocument = errors.New("failed to encode document")
)

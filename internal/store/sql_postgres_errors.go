package store

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorClassification tells the repository whether a failed statement may
// succeed when the caller tries again.
type ErrorClassification int

const (
	// NonRetryable is the default for anything not known to be transient.
	NonRetryable ErrorClassification = iota
	Retryable
)

// PostgresErrorClassifier implements [ErrorClassificator] by SQLSTATE class.
type PostgresErrorClassifier struct{}

func NewPostgresErrorClassifier() *PostgresErrorClassifier {
	return &PostgresErrorClassifier{}
}

// Classify implements [ErrorClassificator]. Errors that did not come from the
// server are NonRetryable.
func (c *PostgresErrorClassifier) Classify(err error) ErrorClassification {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return NonRetryable
	}
	return ClassifyPgError(pgErr)
}

// ClassifyPgError treats whole SQLSTATE classes as transient: connection
// exceptions (08), transaction rollbacks such as deadlocks (40), insufficient
// resources like too many connections (53) and operator intervention such as
// a restarting server (57). Constraint, data and syntax errors are permanent.
func ClassifyPgError(pgErr *pgconn.PgError) ErrorClassification {
	code := pgErr.Code
	switch {
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsTransactionRollback(code),
		pgerrcode.IsInsufficientResources(code),
		pgerrcode.IsOperatorIntervention(code):
		// 57014 is a cancelled statement, usually our own timeout
		if code == pgerrcode.QueryCanceled {
			return NonRetryable
		}
		return Retryable
	}
	return NonRetryable
}

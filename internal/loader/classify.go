package loader

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes that indicate the statement may succeed if simply tried
// again: connection exceptions, transaction rollbacks (serialization
// failures, deadlocks), resource exhaustion, and operator intervention such
// as a failover.
var transientClasses = map[string]bool{
	"08": true,
	"40": true,
	"53": true,
	"57": true,
}

// Transient reports whether err is worth retrying. Integrity, data and
// syntax errors (classes 23, 22, 42) are permanent: the same statement will
// fail the same way forever. Network-level failures with no SQLSTATE are
// transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) < 2 {
			return false
		}
		return transientClasses[pgErr.Code[:2]]
	}

	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// The connection died without a proper SQLSTATE (broken pipe, closed
	// pool conn). pgconn reports these as plain errors.
	return true
}

// UniqueViolation reports whether err is a unique-constraint violation
// (SQLSTATE 23505).
func UniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

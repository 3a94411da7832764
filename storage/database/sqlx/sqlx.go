// Package sqlxrepos provides the PostgreSQL implementations of the core
// Repository interfaces, built on sqlx with plain parameterized queries.
package sqlxrepos

import "github.com/lib/pq"

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint ...string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return false
	}
	if len(constraint) > 0 {
		return pqErr.Constraint == constraint[0]
	}
	return true
}

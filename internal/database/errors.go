package database

import "github.com/lib/pq"

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-index
// violation, the signal behind every taxonomy ConflictError.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && string(pqErr.Code) == pqUniqueViolation
}

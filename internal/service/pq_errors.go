package service

import (
	"errors"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports a lost race against a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

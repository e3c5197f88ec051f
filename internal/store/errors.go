package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert collides with the unique
// email index, including the case of two concurrent registrations.
var ErrDuplicateEmail = errors.New("email already exists")

// ErrDuplicateToken is returned when a token is blacklisted twice.
var ErrDuplicateToken = errors.New("token already blacklisted")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

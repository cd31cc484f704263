package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound turns sql.ErrNoRows into a (nil, nil) pair so Find
// methods report a missing row as absence rather than failure. Callers
// decide whether absence is fine (lookups) or a NOT_FOUND for the user.
func HandleNotFound[T any](result *T, err error) (*T, error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return result, nil
	}
}

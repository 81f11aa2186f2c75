package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrConflict indicates that an operation would violate the
// at-most-one-confirmed-match invariant.
var ErrConflict = errors.New("conflicting confirmed match exists")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

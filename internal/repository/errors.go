package repository

import "errors"

var (
	// ErrNotFound means the row does not exist or is outside the caller's
	// tenant scope. The two cases are deliberately indistinguishable so a
	// guessed identifier leaks nothing.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a conditional update matched no row because the
	// precondition (usually the document status) no longer holds.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateEmail means a unique email constraint was violated.
	ErrDuplicateEmail = errors.New("email already exists")
)

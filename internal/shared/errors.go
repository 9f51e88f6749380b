package shared

import "errors"

var (
	// ErrNotFound indicates a referenced record does not exist for the tenant.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing request input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a state conflict such as insufficient stock or
	// a concurrent update that could not be applied.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Package common holds sentinel errors and constants shared by the server
// packages. Callers match the errors with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
)

package core

import "errors"

// Operations wrap one of these so callers can classify failures with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrProcessing   = errors.New("processing failed")
)

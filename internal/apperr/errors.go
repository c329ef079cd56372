// Package apperr defines sentinel errors shared by the persistence layers.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

package documents

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrFileMissing     = errors.New("file missing")
	ErrAlreadyAttached = errors.New("already attached")
)

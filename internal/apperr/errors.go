package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported construct")
	ErrDuplicate   = errors.New("duplicate source path")
)

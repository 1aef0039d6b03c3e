package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Validation errors. All of them match ErrInvalidInput with errors.Is.
var (
	ErrEmptyContent    = fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	ErrContentTooLong  = fmt.Errorf("%w: content too long (max 10,000 characters)", ErrInvalidInput)
	ErrInvalidCategory = fmt.Errorf("%w: unknown category", ErrInvalidInput)
	ErrCycle           = fmt.Errorf("%w: cluster hierarchy cycle", ErrInvalidInput)
)

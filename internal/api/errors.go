package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	ErrNotFound          = errors.New("bolls: not found")
	ErrRateLimited       = errors.New("bolls: rate limited by server")
	ErrServer            = errors.New("bolls: server error")
	ErrMalformedResponse = errors.New("bolls: malformed response")
)

// Error wraps a provider failure with operation context.
type Error struct {
	Op        string // Operation: "fetchVerse", "fetchVerses", "fetchChapter", "getTranslations"
	Reference string // If applicable
	Err       error
}

func (e *Error) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("bolls %s [%s]: %v", e.Op, e.Reference, e.Err)
	}
	return fmt.Sprintf("bolls %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, reference string, err error) error {
	return &Error{Op: op, Reference: reference, Err: err}
}

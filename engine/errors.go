package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned for page numbers outside [1, PageCount].
	ErrOutOfRange = errors.New("engine: page out of range")
	// ErrAuthenticationFailed is returned when every supplied password was
	// rejected.
	ErrAuthenticationFailed = errors.New("engine: authentication failed")
	// ErrAuthenticationCancelled is returned when the password prompt
	// declined before any password was tried, or when none was configured.
	ErrAuthenticationCancelled = errors.New("engine: authentication cancelled")
	// ErrParseFailure is returned when the document cannot be loaded. No
	// engine is returned alongside it.
	ErrParseFailure = errors.New("engine: parse failure")
	// ErrExtractionFailure marks a failed step of a page's extraction.
	ErrExtractionFailure = errors.New("engine: extraction failure")
	// ErrClosed is returned by every call made after Close.
	ErrClosed = errors.New("engine: closed")
)

// PageError reports a failed extraction step. It matches
// ErrExtractionFailure and its cause with errors.Is.
type PageError struct {
	PageNo int
	Stage  string
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("engine: page %d: %s: %v", e.PageNo, e.Stage, e.Err)
}

func (e *PageError) Unwrap() []error { return []error{ErrExtractionFailure, e.Err} }

func outOfRange(pageNo, count int) error {
	return fmt.Errorf("%w: %d not in [1, %d]", ErrOutOfRange, pageNo, count)
}

func parseFailure(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrParseFailure, stage, err)
}

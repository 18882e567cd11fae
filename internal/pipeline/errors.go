package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline errors. Configuration and validation errors are
// raised before any processing starts; conversion and model errors abort the
// run; summarization and cleanup failures never do.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindConversion    Kind = "conversion"
	KindModel         Kind = "model"
	KindSummarization Kind = "summarization"
	KindTimeout       Kind = "timeout"
	KindCleanup       Kind = "cleanup"
)

// Error is a classified pipeline error. Stage is empty for pre-flight errors.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a classified error wrapping cause (which may be nil).
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Errorf creates a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" if err carries no classification.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsFatal reports whether err must abort a run. Summarization and cleanup
// problems degrade instead of failing.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindSummarization, KindCleanup:
		return false
	}
	return err != nil
}

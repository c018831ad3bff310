// Package errors carries the engine's error taxonomy. Every error leaving a
// service is marked with one of the sentinel kinds below so that transport
// layers can map it without string matching.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrAttribution  = errors.New("unattributable event")
	ErrProvider     = errors.New("billing provider error")
	ErrDatabase     = errors.New("database error")
	ErrInternal     = errors.New("internal error")
)

// ErrorBuilder assembles a marked error with optional hint and details.
type ErrorBuilder struct {
	err     error
	msg     string
	hint    string
	details map[string]any
}

// NewError starts a builder for a fresh error.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// NewErrorf starts a builder for a fresh formatted error.
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts a builder wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &ErrorBuilder{err: err}
}

// WithMessage prefixes the wrapped error with context.
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.msg = msg
	return b
}

// WithMessagef is the formatted variant of WithMessage.
func (b *ErrorBuilder) WithMessagef(format string, args ...any) *ErrorBuilder {
	b.msg = fmt.Sprintf(format, args...)
	return b
}

// WithHint attaches a user-facing hint.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

// WithHintf is the formatted variant of WithHint.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details for logs and responses.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	b.details = details
	return b
}

// Mark finalizes the error and tags it with a sentinel kind.
func (b *ErrorBuilder) Mark(kind error) error {
	err := b.err
	if b.msg != "" {
		err = errors.Wrap(err, b.msg)
	}
	if b.hint != "" {
		err = errors.WithHint(err, b.hint)
	}
	if len(b.details) > 0 {
		err = &detailedError{cause: err, details: b.details}
	}
	return errors.Mark(err, kind)
}

type detailedError struct {
	cause   error
	details map[string]any
}

func (e *detailedError) Error() string { return e.cause.Error() }
func (e *detailedError) Unwrap() error { return e.cause }

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// As is errors.As re-exported so callers need a single import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound is a shorthand for Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Hint returns the first hint attached to err, if any.
func Hint(err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		return ""
	}
	return hints[0]
}

// Details returns structured details attached with WithReportableDetails.
func Details(err error) map[string]any {
	var d *detailedError
	if errors.As(err, &d) {
		return d.details
	}
	return nil
}

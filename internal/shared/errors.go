package shared

import (
	"errors"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ErrorKind classifies a failure of the pin, fetch, or extract pipeline.
// Every kind is terminal for the operation that raised it.
type ErrorKind string

const (
	KindParse      ErrorKind = "parse"
	KindValidation ErrorKind = "validation"
	KindFetch      ErrorKind = "fetch"
	KindIntegrity  ErrorKind = "integrity"
	KindExtraction ErrorKind = "extraction"
)

// Error tags an errbuilder error with its kind. Match kinds with
// errors.Is against the sentinels below, or read the code with
// errbuilder.CodeOf on the unwrapped value.
type Error struct {
	Kind ErrorKind
	Err  error
}

var (
	ErrParse      = &Error{Kind: KindParse}
	ErrValidation = &Error{Kind: KindValidation}
	ErrFetch      = &Error{Kind: KindFetch}
	ErrIntegrity  = &Error{Kind: KindIntegrity}
	ErrExtraction = &Error{Kind: KindExtraction}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	return string(e.Kind) + " error: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels (an Error with no wrapped value) by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

func ParseError(msg string, cause error) error {
	return tag(KindParse, errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg(msg), cause)
}

func ValidationError(msg string, cause error) error {
	return tag(KindValidation, errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg(msg), cause)
}

func FetchError(msg string, cause error) error {
	return tag(KindFetch, errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg(msg), cause)
}

func IntegrityError(msg string, cause error) error {
	return tag(KindIntegrity, errbuilder.New().WithCode(errbuilder.CodeFailedPrecondition).WithMsg(msg), cause)
}

func ExtractionError(msg string, cause error) error {
	return tag(KindExtraction, errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg(msg), cause)
}

// KindOf returns the kind of the outermost tagged error in the chain,
// or "" when the chain carries none.
func KindOf(err error) ErrorKind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ""
}

// Message returns the errbuilder message when present, else err.Error().
func Message(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && builder.Msg != "" {
		return builder.Msg
	}
	return err.Error()
}

func tag(kind ErrorKind, builder *errbuilder.ErrBuilder, cause error) error {
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return &Error{Kind: kind, Err: builder}
}

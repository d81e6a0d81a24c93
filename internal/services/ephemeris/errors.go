package ephemeris

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind string

const (
	// KindConfiguration: the external tool is missing or not executable.
	// Fatal, never retried.
	KindConfiguration Kind = "configuration"
	// KindInvocation: non-zero exit, timeout or empty output. The caller
	// may retry the whole request later.
	KindInvocation Kind = "invocation"
	// KindParse: output was present but numerically insufficient.
	KindParse Kind = "parse"
)

var (
	ErrConfiguration = errors.New("ephemeris: configuration error")
	ErrInvocation    = errors.New("ephemeris: invocation error")
	ErrParse         = errors.New("ephemeris: parse error")
)

// Error carries the stage and an excerpt of the raw input so failures can
// be logged with context. It matches the Err* sentinels with errors.Is.
type Error struct {
	Kind  Kind
	Stage string // positions or houses
	Input string
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ephemeris %s %s", e.Stage, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" (input: %q)", e.Input)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrInvocation:
		return e.Kind == KindInvocation
	case ErrParse:
		return e.Kind == KindParse
	}
	return false
}

const maxExcerpt = 256

func newError(kind Kind, stage, input string, err error) *Error {
	if len(input) > maxExcerpt {
		input = input[:maxExcerpt] + "..."
	}
	return &Error{Kind: kind, Stage: stage, Input: input, Err: err}
}

// Package apperr classifies failures of the photobooth pipeline so the
// orchestrator can decide between retrying, resetting and halting.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindDetectionUnavailable
	KindGeneration
	KindComposition
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDetectionUnavailable:
		return "detection unavailable"
	case KindGeneration:
		return "generation"
	case KindComposition:
		return "composition"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Configuration(op string, format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

func Generation(op string, err error) error {
	return &Error{Kind: KindGeneration, Op: op, Err: err}
}

func Composition(op string, err error) error {
	return &Error{Kind: KindComposition, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether another attempt may succeed. Errors outside the
// taxonomy are treated as transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch KindOf(err) {
	case KindConfiguration, KindExhausted:
		return false
	default:
		return true
	}
}

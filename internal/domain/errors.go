package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an operation failure so the transport layer can
// map it to a response without parsing messages.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation covers out-of-range or malformed input.
	KindValidation
	// KindConflict covers operations refused because of existing state,
	// e.g. a filling already in progress for the device.
	KindConflict
	// KindCapacity covers pump-on attempts at or above the stop threshold.
	KindCapacity
	// KindNotFound covers unknown devices and session ids.
	KindNotFound
	// KindInvalidState covers operations illegal for the current lifecycle
	// state, e.g. completing a cancelled filling.
	KindInvalidState
	// KindComputation covers corrupt or irreconcilable sensor sequences.
	KindComputation
)

type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func Capacityf(format string, args ...any) error {
	return newError(KindCapacity, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func InvalidStatef(format string, args ...any) error {
	return newError(KindInvalidState, format, args...)
}

func Computationf(format string, args ...any) error {
	return newError(KindComputation, format, args...)
}

// KindOf returns the classification of err, unwrapping as needed.
// Errors that did not originate here report KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

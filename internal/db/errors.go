package db

import (
	"errors"
	"fmt"
)

// Code categorizes DB errors.
type Code string

const (
	// CodeEngineUnavailable indicates bootstrap failed or the DB is closed.
	// Every call fails with it; it is never retried.
	CodeEngineUnavailable Code = "ENGINE_UNAVAILABLE"

	// CodeMutationFailed indicates the engine rejected a mutation. Nothing
	// was persisted or notified.
	CodeMutationFailed Code = "MUTATION_FAILED"

	// CodePersistenceFailed indicates the snapshot could not be exported
	// or stored. The engine keeps the mutated state; nothing was notified.
	CodePersistenceFailed Code = "PERSISTENCE_FAILED"

	// CodeDecodeFailed indicates a stored snapshot could not be decoded.
	// Bootstrap recovers from it by starting with empty tables.
	CodeDecodeFailed Code = "DECODE_FAILED"
)

// Error is returned by DB operations.
type Error struct {
	Code  Code
	Op    string
	Table string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if e.Table != "" {
		msg += fmt.Sprintf(" (table=%s)", e.Table)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the Code of err, or "" if err is not an *Error.
func ErrorCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnavailable reports whether err means the DB cannot serve requests.
func IsUnavailable(err error) bool {
	return ErrorCode(err) == CodeEngineUnavailable
}

// IsPersistenceFailure reports whether err means a mutation was applied in
// memory but not persisted.
func IsPersistenceFailure(err error) bool {
	return ErrorCode(err) == CodePersistenceFailed
}

// IsMutationFailure reports whether err means a mutation was rejected
// before anything was persisted.
func IsMutationFailure(err error) bool {
	return ErrorCode(err) == CodeMutationFailed
}

// IsDecodeFailure reports whether err is a snapshot decode failure.
func IsDecodeFailure(err error) bool {
	return ErrorCode(err) == CodeDecodeFailed
}

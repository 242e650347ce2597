// Package extapi defines the error taxonomy shared by the external-API
// adapters (Telegram file downloads, speech transcription and synthesis, and
// the automation service client).
//
// Classified errors are caught at the call site that invoked the adapter and
// converted into a user-facing chat message; they never drive retries or state
// transitions. Unclassified errors propagate to the outermost handler.
package extapi

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind partitions adapter failures into the categories the message handler
// distinguishes when deciding user-facing messaging and log level.
type Kind string

const (
	// KindConnection covers failures to reach the remote service at all.
	KindConnection Kind = "connection"
	// KindTimeout covers deadline and read/write timeout failures.
	KindTimeout Kind = "timeout"
	// KindInvalidResponse covers unparseable or unexpected response payloads.
	KindInvalidResponse Kind = "invalid_response"
	// KindTranscription covers speech-to-text domain failures.
	KindTranscription Kind = "transcription"
	// KindSynthesis covers text-to-speech domain failures.
	KindSynthesis Kind = "synthesis"
	// KindAutomation covers automation-service domain failures.
	KindAutomation Kind = "automation"
)

// Error is a classified failure from an external-API adapter.
type Error struct {
	Kind Kind
	Op   string // adapter operation, e.g. "transcribe", "iterate"
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a classified Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf constructs a classified Error from a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Classify wraps a transport-level error as connection or timeout depending
// on its shape. Errors that are already classified pass through unchanged;
// a nil err returns nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindTimeout, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return New(KindTimeout, op, err)
	}
	return New(KindConnection, op, err)
}

// IsClassified reports whether err (or anything it wraps) carries a Kind.
func IsClassified(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// KindOf returns the Kind attached to err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

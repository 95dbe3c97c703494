// internal/model/errors.go
package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies printer failures. Kinds are themselves errors so
// callers can test with errors.Is(err, model.ErrNotConnected).
type ErrorKind string

const (
	ErrAdapterUnavailable ErrorKind = "adapter unavailable"
	ErrScanFailure        ErrorKind = "scan failure"
	ErrDeviceNotFound     ErrorKind = "device not found"
	ErrConnectFailure     ErrorKind = "connect failure"
	ErrNotConnected       ErrorKind = "not connected"
	ErrWriteFailure       ErrorKind = "write failure"
	ErrUnsupportedFeature ErrorKind = "unsupported feature"
	ErrDecodeFailure      ErrorKind = "decode failure"
)

func (k ErrorKind) Error() string {
	return string(k)
}

// PrinterError carries the kind, the failing operation and the transport
type PrinterError struct {
	Kind      ErrorKind
	Op        string
	Transport ConnectionType
	Err       error
	Retryable bool
}

// NewError builds a PrinterError
func NewError(kind ErrorKind, transport ConnectionType, op string, err error) *PrinterError {
	return &PrinterError{Kind: kind, Op: op, Transport: transport, Err: err}
}

// NewRetryableError builds a PrinterError the caller may retry
func NewRetryableError(kind ErrorKind, transport ConnectionType, op string, err error) *PrinterError {
	e := NewError(kind, transport, op, err)
	e.Retryable = true
	return e
}

func (e *PrinterError) Error() string {
	prefix := e.Op
	if e.Transport != "" {
		prefix = fmt.Sprintf("%s %s", e.Transport, e.Op)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Kind, e.Err)
}

func (e *PrinterError) Unwrap() error {
	return e.Err
}

// Is matches another PrinterError or a bare ErrorKind by kind
func (e *PrinterError) Is(target error) bool {
	switch t := target.(type) {
	case ErrorKind:
		return e.Kind == t
	case *PrinterError:
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the kind of the first PrinterError in the chain, or "" if none
func KindOf(err error) ErrorKind {
	var pe *PrinterError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// IsRetryable reports whether the error was marked retryable by its transport
func IsRetryable(err error) bool {
	var pe *PrinterError
	return errors.As(err, &pe) && pe.Retryable
}

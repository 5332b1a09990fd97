package errors

import (
	"errors"
	"fmt"
)

// CounterMCPError is the base interface for all server errors.
type CounterMCPError interface {
	error
	IsCounterMCPError() bool
}

// Compile-time verification that all error types implement CounterMCPError.
var (
	_ CounterMCPError = (*ProtocolViolationError)(nil)
	_ CounterMCPError = (*ToolNotFoundError)(nil)
	_ CounterMCPError = (*HandlerError)(nil)
	_ CounterMCPError = (*TransportError)(nil)
	_ CounterMCPError = (*DuplicateToolError)(nil)
	_ CounterMCPError = (*InvalidToolError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotInitialized indicates a request arrived before the initialize handshake.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyInitialized indicates a second initialize request on one session.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrSessionClosed indicates the session has been closed and cannot be reused.
	ErrSessionClosed = errors.New("session closed: sessions are single-use, serve a new transport")
)

// ProtocolViolationError indicates a request was sent in a session state that
// does not permit it.
type ProtocolViolationError struct {
	Method string
	State  string
	Err    error
}

func (e *ProtocolViolationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol violation: %q not allowed while %s: %v", e.Method, e.State, e.Err)
	}

	return fmt.Sprintf("protocol violation: %q not allowed while %s", e.Method, e.State)
}

func (e *ProtocolViolationError) Unwrap() error {
	return e.Err
}

// IsCounterMCPError implements CounterMCPError.
func (e *ProtocolViolationError) IsCounterMCPError() bool { return true }

// ToolNotFoundError indicates the requested tool is not registered.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// IsCounterMCPError implements CounterMCPError.
func (e *ToolNotFoundError) IsCounterMCPError() bool { return true }

// HandlerError indicates a tool's own logic signalled failure.
type HandlerError struct {
	Tool string
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// IsCounterMCPError implements CounterMCPError.
func (e *HandlerError) IsCounterMCPError() bool { return true }

// TransportError indicates the underlying byte stream failed.
// It is fatal to the session and never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsCounterMCPError implements CounterMCPError.
func (e *TransportError) IsCounterMCPError() bool { return true }

// DuplicateToolError indicates a tool name was registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// IsCounterMCPError implements CounterMCPError.
func (e *DuplicateToolError) IsCounterMCPError() bool { return true }

// InvalidToolError indicates a tool descriptor is unusable.
type InvalidToolError struct {
	Name   string
	Reason string
}

func (e *InvalidToolError) Error() string {
	return fmt.Sprintf("invalid tool %q: %s", e.Name, e.Reason)
}

// IsCounterMCPError implements CounterMCPError.
func (e *InvalidToolError) IsCounterMCPError() bool { return true }

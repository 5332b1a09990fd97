package countermcp

import "github.com/wagiedev/counter-mcp-go/internal/errors"

// Re-export error types from internal package

// ProtocolViolationError indicates a request the session state does not permit.
type ProtocolViolationError = errors.ProtocolViolationError

// ToolNotFoundError indicates a tools/call for an unregistered tool.
type ToolNotFoundError = errors.ToolNotFoundError

// HandlerError indicates a tool handler failed.
type HandlerError = errors.HandlerError

// TransportError indicates reading from or writing to the connection failed.
type TransportError = errors.TransportError

// DuplicateToolError indicates two tools were registered under one name.
type DuplicateToolError = errors.DuplicateToolError

// InvalidToolError indicates a tool descriptor that cannot be registered.
type InvalidToolError = errors.InvalidToolError

// CounterMCPError is the base interface for all server errors.
type CounterMCPError = errors.CounterMCPError

// Re-export sentinel errors from internal package.
var (
	// ErrNotInitialized indicates a request arrived before the initialize handshake.
	ErrNotInitialized = errors.ErrNotInitialized

	// ErrAlreadyInitialized indicates a repeated initialize request.
	ErrAlreadyInitialized = errors.ErrAlreadyInitialized

	// ErrSessionClosed indicates the session has been closed and cannot be reused.
	ErrSessionClosed = errors.ErrSessionClosed
)

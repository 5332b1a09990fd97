package protocol

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/counter-mcp-go/internal/dispatch"
	"github.com/wagiedev/counter-mcp-go/internal/errors"
	"github.com/wagiedev/counter-mcp-go/internal/telemetry"
)

// State is the protocol state of a Session.
type State int32

const (
	// StateUninitialized accepts only the initialize request.
	StateUninitialized State = iota
	// StateReady serves tool listing and invocation.
	StateReady
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session serves one MCP connection.
//
// The session owns its connection and closes it when Serve returns. A Session
// is single-use: once closed it cannot serve again.
type Session[T any] struct {
	log         *slog.Logger
	id          string
	conn        mcp.Connection
	dispatcher  *dispatch.Dispatcher[T]
	info        *Info
	instruments *telemetry.Instruments

	state   atomic.Int32
	started atomic.Bool

	// Client identity from the handshake (protected by initMu)
	initMu     sync.RWMutex
	clientInfo *mcp.Implementation
	version    string

	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a Session for conn.
//
// A nil instruments value disables session telemetry; the dispatcher carries
// its own instruments for tool calls.
func NewSession[T any](
	log *slog.Logger,
	conn mcp.Connection,
	dispatcher *dispatch.Dispatcher[T],
	info *Info,
	instruments *telemetry.Instruments,
) *Session[T] {
	id := ulid.Make().String()

	if info == nil {
		info = &Info{}
	}

	return &Session[T]{
		log:         log.With("component", "session", "session_id", id),
		id:          id,
		conn:        conn,
		dispatcher:  dispatcher,
		info:        info,
		instruments: instruments,
	}
}

// ID returns the session's unique identifier.
func (s *Session[T]) ID() string {
	return s.id
}

// State returns the current protocol state.
func (s *Session[T]) State() State {
	return State(s.state.Load())
}

// ClientInfo returns the client identity and negotiated protocol version.
// Both are empty before the handshake completes.
func (s *Session[T]) ClientInfo() (*mcp.Implementation, string) {
	s.initMu.RLock()
	defer s.initMu.RUnlock()

	return s.clientInfo, s.version
}

// Serve runs the receive-dispatch-send loop until the connection closes.
//
// Serve returns nil when the peer closes the connection, ctx.Err() when ctx is
// cancelled and a *errors.TransportError when reading or writing fails. A
// handler that is already running is allowed to finish; its response is
// discarded if the connection is gone. Calling Serve a second time returns
// errors.ErrSessionClosed.
func (s *Session[T]) Serve(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.ErrSessionClosed
	}

	s.log.Info("Session started")

	if s.instruments != nil {
		s.instruments.SessionOpened(ctx, s.id)
	}

	defer func() {
		_ = s.Close()

		if s.instruments != nil {
			s.instruments.SessionClosed(context.WithoutCancel(ctx), s.id)
		}

		s.log.Info("Session closed")
	}()

	for {
		msg, err := s.conn.Read(ctx)
		if err != nil {
			return s.readFailed(ctx, err)
		}

		switch m := msg.(type) {
		case *jsonrpc.Request:
			resp := s.handle(ctx, m)
			if resp == nil {
				continue
			}

			if err := s.conn.Write(ctx, resp); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				s.log.Error("Failed to write response", "method", m.Method, "error", err)

				return &errors.TransportError{Op: "write", Err: err}
			}

		case *jsonrpc.Response:
			// The server never issues requests, so there is nothing to correlate.
			s.log.Warn("Dropping unexpected response", "id", m.ID.Raw())
		}
	}
}

// Close closes the underlying connection and moves the session to StateClosed.
// It is safe to call Close multiple times.
func (s *Session[T]) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

// readFailed classifies a read error as a graceful close, a cancellation or a
// transport failure. Malformed frames and invalid envelopes are both transport
// failures: the connection cannot say whether its reader is still alive.
func (s *Session[T]) readFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		s.log.Debug("Context cancelled while reading", "error", err)

		return ctx.Err()
	}

	if stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, io.ErrClosedPipe) ||
		stderrors.Is(err, mcp.ErrConnectionClosed) {
		s.log.Debug("Transport closed by peer")

		return nil
	}

	s.log.Error("Failed to read message", "error", err)

	return &errors.TransportError{Op: "read", Err: err}
}

// handle processes one inbound request and returns the response to send,
// or nil for notifications.
func (s *Session[T]) handle(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if !req.IsCall() {
		s.handleNotification(req)

		return nil
	}

	s.log.Debug("Received request", "id", req.ID.Raw(), "method", req.Method)

	result, err := s.route(ctx, req)
	if err != nil {
		s.log.Debug("Request failed", "id", req.ID.Raw(), "method", req.Method, "error", err)

		return newErrorResponse(req.ID, err)
	}

	resp, err := newResult(req.ID, result)
	if err != nil {
		s.log.Error("Failed to encode result", "method", req.Method, "error", err)

		return newErrorResponse(req.ID, err)
	}

	return resp
}

// route applies the state machine and dispatches req to its method handler.
func (s *Session[T]) route(ctx context.Context, req *jsonrpc.Request) (any, error) {
	state := s.State()

	if state == StateUninitialized && req.Method != MethodInitialize {
		return nil, &errors.ProtocolViolationError{
			Method: req.Method,
			State:  state.String(),
			Err:    errors.ErrNotInitialized,
		}
	}

	switch req.Method {
	case MethodInitialize:
		return s.handleInitialize(req)

	case MethodPing:
		return struct{}{}, nil

	case MethodToolsList:
		return s.handleToolsList(req)

	case MethodToolsCall:
		return s.handleToolsCall(ctx, req)

	default:
		return nil, methodNotFound(req.Method)
	}
}

// handleInitialize performs the handshake.
func (s *Session[T]) handleInitialize(req *jsonrpc.Request) (any, error) {
	var params initializeParams
	if err := decodeParams(req.Method, req.Params, &params); err != nil {
		return nil, err
	}

	if !s.state.CompareAndSwap(int32(StateUninitialized), int32(StateReady)) {
		return nil, &errors.ProtocolViolationError{
			Method: req.Method,
			State:  s.State().String(),
			Err:    errors.ErrAlreadyInitialized,
		}
	}

	result := s.info.initializeResult(params.ProtocolVersion)

	s.initMu.Lock()
	s.clientInfo = params.ClientInfo
	s.version = result.ProtocolVersion
	s.initMu.Unlock()

	clientName := ""
	if params.ClientInfo != nil {
		clientName = params.ClientInfo.Name
	}

	s.log.Info("Session initialized",
		"client", clientName,
		"requested_version", params.ProtocolVersion,
		"protocol_version", result.ProtocolVersion,
	)

	return result, nil
}

// handleToolsList returns every tool in registration order as a single page.
func (s *Session[T]) handleToolsList(req *jsonrpc.Request) (any, error) {
	var params mcp.ListToolsParams
	if err := decodeParams(req.Method, req.Params, &params); err != nil {
		return nil, err
	}

	if params.Cursor != "" {
		s.log.Debug("Ignoring pagination cursor", "cursor", params.Cursor)
	}

	return &mcp.ListToolsResult{
		Tools: s.dispatcher.Registry().List(),
	}, nil
}

// handleToolsCall delegates to the dispatcher.
func (s *Session[T]) handleToolsCall(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params mcp.CallToolParamsRaw
	if err := decodeParams(req.Method, req.Params, &params); err != nil {
		return nil, err
	}

	if params.Name == "" {
		return nil, &jsonrpc.Error{
			Code:    jsonrpc.CodeInvalidParams,
			Message: "missing tool name in params",
		}
	}

	return s.dispatcher.Dispatch(ctx, &params)
}

// handleNotification logs and drops notifications; they never get a response.
func (s *Session[T]) handleNotification(req *jsonrpc.Request) {
	switch req.Method {
	case MethodInitialized:
		s.log.Debug("Client acknowledged initialization")
	default:
		s.log.Debug("Ignoring notification", "method", req.Method)
	}
}

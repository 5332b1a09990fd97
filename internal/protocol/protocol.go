package protocol

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/wagiedev/counter-mcp-go/internal/errors"
)

// Error codes carried in JSON-RPC error responses.
const (
	// CodeProtocolViolation is sent for requests the session state does not permit.
	CodeProtocolViolation = jsonrpc.CodeInvalidRequest
	// CodeToolNotFound is sent when tools/call names an unregistered tool.
	CodeToolNotFound = jsonrpc.CodeInvalidParams
	// CodeHandlerError is sent when a tool handler fails.
	CodeHandlerError = -32000
)

// newResult builds a success response for id.
func newResult(id jsonrpc.ID, result any) (*jsonrpc.Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	return &jsonrpc.Response{ID: id, Result: data}, nil
}

// newErrorResponse builds an error response for id.
func newErrorResponse(id jsonrpc.ID, err error) *jsonrpc.Response {
	return &jsonrpc.Response{ID: id, Error: toWireError(err)}
}

// toWireError maps the server's error taxonomy onto JSON-RPC error objects.
func toWireError(err error) *jsonrpc.Error {
	var (
		wireErr      *jsonrpc.Error
		violation    *errors.ProtocolViolationError
		notFound     *errors.ToolNotFoundError
		handlerErr   *errors.HandlerError
		errorDetails map[string]any
		code         int64
	)

	switch {
	case stderrors.As(err, &violation):
		code = CodeProtocolViolation
		errorDetails = map[string]any{"method": violation.Method, "state": violation.State}

	case stderrors.As(err, &handlerErr):
		code = CodeHandlerError
		errorDetails = map[string]any{"tool": handlerErr.Tool}

	case stderrors.As(err, &notFound):
		code = CodeToolNotFound
		errorDetails = map[string]any{"tool": notFound.Name}

	case stderrors.As(err, &wireErr):
		return wireErr

	default:
		code = jsonrpc.CodeInternalError
	}

	out := &jsonrpc.Error{Code: code, Message: err.Error()}

	if errorDetails != nil {
		if data, mErr := json.Marshal(errorDetails); mErr == nil {
			out.Data = data
		}
	}

	return out
}

// invalidParams builds an invalid-params error for method.
func invalidParams(method string, err error) *jsonrpc.Error {
	return &jsonrpc.Error{
		Code:    jsonrpc.CodeInvalidParams,
		Message: fmt.Sprintf("invalid params for %q: %v", method, err),
	}
}

// methodNotFound builds a method-not-found error for method.
func methodNotFound(method string) *jsonrpc.Error {
	return &jsonrpc.Error{
		Code:    jsonrpc.CodeMethodNotFound,
		Message: fmt.Sprintf("method not found: %s", method),
	}
}

// decodeParams unmarshals raw into v. Absent or null params leave v untouched.
func decodeParams(method string, raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return invalidParams(method, err)
	}

	return nil
}

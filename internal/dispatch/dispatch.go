// Package dispatch resolves tool calls against a registry and runs them
// against the shared state guard.
package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/counter-mcp-go/internal/errors"
	"github.com/wagiedev/counter-mcp-go/internal/state"
	"github.com/wagiedev/counter-mcp-go/internal/telemetry"
	"github.com/wagiedev/counter-mcp-go/internal/tool"
)

// Dispatcher invokes registered tools with access to one shared state guard.
//
// A Dispatcher is safe for concurrent use. Concurrent calls are serialized only
// inside the handlers' guard sections, so the guarded value reflects the order
// in which those sections acquired the guard.
type Dispatcher[T any] struct {
	log         *slog.Logger
	registry    *tool.Registry[T]
	guard       *state.Guard[T]
	instruments *telemetry.Instruments
}

// New creates a Dispatcher. A nil instruments value disables telemetry.
func New[T any](
	log *slog.Logger,
	registry *tool.Registry[T],
	guard *state.Guard[T],
	instruments *telemetry.Instruments,
) *Dispatcher[T] {
	return &Dispatcher[T]{
		log:         log.With("component", "dispatch"),
		registry:    registry,
		guard:       guard,
		instruments: instruments,
	}
}

// Registry returns the registry the dispatcher resolves tools from.
func (d *Dispatcher[T]) Registry() *tool.Registry[T] {
	return d.registry
}

// Dispatch executes the tool named in params.
//
// Returns a *errors.ToolNotFoundError if the tool is not registered and a
// *errors.HandlerError if the handler fails or panics. Arguments are passed to
// the handler untouched; tools that take none ignore them.
func (d *Dispatcher[T]) Dispatch(ctx context.Context, params *mcp.CallToolParamsRaw) (*mcp.CallToolResult, error) {
	if params == nil {
		params = &mcp.CallToolParamsRaw{}
	}

	end := func(string, error) {}
	if d.instruments != nil {
		ctx, end = d.instruments.StartCall(ctx, params.Name)
	}

	desc, err := d.registry.Lookup(params.Name)
	if err != nil {
		d.log.Warn("Tool not found", "tool", params.Name)
		end(telemetry.OutcomeNotFound, err)

		return nil, err
	}

	d.log.Debug("Dispatching tool call", "tool", desc.Name, "has_arguments", len(params.Arguments) > 0)

	result, err := d.invoke(ctx, desc, &mcp.CallToolRequest{Params: params})
	if err != nil {
		d.log.Warn("Tool handler failed", "tool", desc.Name, "error", err)
		end(telemetry.OutcomeError, err)

		return nil, err
	}

	if result == nil {
		result = &mcp.CallToolResult{Content: []mcp.Content{}}
	}

	end(telemetry.OutcomeOK, nil)

	return result, nil
}

// invoke runs the handler, converting failures and panics into *errors.HandlerError.
func (d *Dispatcher[T]) invoke(
	ctx context.Context,
	desc tool.Descriptor[T],
	req *mcp.CallToolRequest,
) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Tool handler panicked", "tool", desc.Name, "panic", r)

			result = nil
			err = &errors.HandlerError{Tool: desc.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = desc.Handler(ctx, d.guard, req)
	if err == nil {
		return result, nil
	}

	var handlerErr *errors.HandlerError
	if stderrors.As(err, &handlerErr) {
		return nil, handlerErr
	}

	return nil, &errors.HandlerError{Tool: desc.Name, Err: err}
}

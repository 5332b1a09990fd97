// Package counter provides the reference counter tools: increment, decrement
// and get_counter, all operating on one shared int64.
package counter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/counter-mcp-go/internal/state"
	"github.com/wagiedev/counter-mcp-go/internal/tool"
)

// Tool names, in registration order.
const (
	ToolIncrement  = "increment"
	ToolDecrement  = "decrement"
	ToolGetCounter = "get_counter"
)

// Instructions describes the counter tools for the initialize handshake.
const Instructions = "This server provide counter tools that can increment, decrement, " +
	"and retrieve the current value of a counter. Use the 'increment', 'decrement', " +
	"and 'get_counter' tools to interact with the counter."

// ErrOverflow is returned under OverflowReject when a step would leave the
// int64 range.
var ErrOverflow = errors.New("counter overflow")

// OverflowPolicy selects what happens when a step crosses the int64 bounds.
type OverflowPolicy string

const (
	// OverflowWrap wraps around using two's-complement arithmetic.
	OverflowWrap OverflowPolicy = "wrap"
	// OverflowSaturate clamps the counter at math.MaxInt64 or math.MinInt64.
	OverflowSaturate OverflowPolicy = "saturate"
	// OverflowReject fails the call and leaves the counter unchanged.
	OverflowReject OverflowPolicy = "reject"
)

// ParseOverflowPolicy converts s to an OverflowPolicy.
// An empty string selects OverflowWrap.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(s); p {
	case "":
		return OverflowWrap, nil
	case OverflowWrap, OverflowSaturate, OverflowReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Step applies delta to v under policy and returns the new value.
func Step(v, delta int64, policy OverflowPolicy) (int64, error) {
	next := v + delta

	overflowed := (delta > 0 && next < v) || (delta < 0 && next > v)
	if !overflowed {
		return next, nil
	}

	switch policy {
	case OverflowSaturate:
		if delta > 0 {
			return math.MaxInt64, nil
		}

		return math.MinInt64, nil
	case OverflowReject:
		return v, fmt.Errorf("%w: %d%+d", ErrOverflow, v, delta)
	default:
		return next, nil
	}
}

// Register adds the counter tools to b in their fixed order.
func Register(b *tool.Builder[int64], policy OverflowPolicy) error {
	descriptors := []tool.Descriptor[int64]{
		{
			Name:        ToolIncrement,
			Description: "Tool that increments and decrements a counter",
			Handler:     stepHandler(1, policy),
		},
		{
			Name:        ToolDecrement,
			Description: "Tool that decrements a counter",
			Handler:     stepHandler(-1, policy),
		},
		{
			Name:        ToolGetCounter,
			Description: "Tool that returns the current value of the counter",
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
			Handler:     getHandler,
		},
	}

	for _, d := range descriptors {
		if err := b.Register(d); err != nil {
			return err
		}
	}

	return nil
}

// Tools builds a registry containing only the counter tools.
func Tools(policy OverflowPolicy) (*tool.Registry[int64], error) {
	b := tool.NewBuilder[int64]()
	if err := Register(b, policy); err != nil {
		return nil, err
	}

	return b.Build(), nil
}

func stepHandler(delta int64, policy OverflowPolicy) tool.Handler[int64] {
	return func(_ context.Context, guard *state.Guard[int64], _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var current int64

		err := guard.Do(func(v *int64) error {
			next, err := Step(*v, delta, policy)
			if err != nil {
				return err
			}

			*v = next
			current = next

			return nil
		})
		if err != nil {
			return nil, err
		}

		return tool.TextResult(strconv.FormatInt(current, 10)), nil
	}
}

func getHandler(_ context.Context, guard *state.Guard[int64], _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var current int64

	_ = guard.Do(func(v *int64) error {
		current = *v

		return nil
	})

	return tool.TextResult(strconv.FormatInt(current, 10)), nil
}

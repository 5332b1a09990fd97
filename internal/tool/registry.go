package tool

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/counter-mcp-go/internal/errors"
	"github.com/wagiedev/counter-mcp-go/internal/state"
)

// Handler executes one tool call against state guarded by guard.
//
// Handler-level failures are returned as errors, never encoded as a default
// value. The request carries the raw call arguments, which handlers that take
// no arguments simply ignore.
type Handler[T any] func(ctx context.Context, guard *state.Guard[T], req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Descriptor describes one invocable tool.
type Descriptor[T any] struct {
	Name        string
	Description string
	// InputSchema defaults to an empty object schema when nil.
	InputSchema *jsonschema.Schema
	Annotations *mcp.ToolAnnotations
	Handler     Handler[T]
}

// Builder assembles a Registry. It is not safe for concurrent use.
type Builder[T any] struct {
	tools []Descriptor[T]
	index map[string]int
}

// NewBuilder creates an empty registry builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{
		tools: make([]Descriptor[T], 0, 8),
		index: make(map[string]int, 8),
	}
}

// Register adds a tool.
//
// It returns a *errors.DuplicateToolError if the name is already taken and a
// *errors.InvalidToolError if the descriptor has no name or no handler.
func (b *Builder[T]) Register(d Descriptor[T]) error {
	if d.Name == "" {
		return &errors.InvalidToolError{Name: d.Name, Reason: "name must not be empty"}
	}

	if d.Handler == nil {
		return &errors.InvalidToolError{Name: d.Name, Reason: "handler must not be nil"}
	}

	if _, exists := b.index[d.Name]; exists {
		return &errors.DuplicateToolError{Name: d.Name}
	}

	if d.InputSchema == nil {
		d.InputSchema = EmptyObjectSchema()
	}

	b.index[d.Name] = len(b.tools)
	b.tools = append(b.tools, d)

	return nil
}

// MustRegister is like Register but panics on error.
// It is meant for startup code where a collision is a programming error.
func (b *Builder[T]) MustRegister(d Descriptor[T]) {
	if err := b.Register(d); err != nil {
		panic(err)
	}
}

// Build freezes the registered tools into a Registry.
// The builder may keep being used; later registrations do not affect the result.
func (b *Builder[T]) Build() *Registry[T] {
	tools := make([]Descriptor[T], len(b.tools))
	copy(tools, b.tools)

	index := make(map[string]int, len(b.index))
	for name, i := range b.index {
		index[name] = i
	}

	return &Registry[T]{tools: tools, index: index}
}

// Registry is an immutable, ordered set of tools.
type Registry[T any] struct {
	tools []Descriptor[T]
	index map[string]int
}

// Len returns the number of registered tools.
func (r *Registry[T]) Len() int {
	return len(r.tools)
}

// Lookup returns the tool registered under name, or a *errors.ToolNotFoundError.
func (r *Registry[T]) Lookup(name string) (Descriptor[T], error) {
	i, ok := r.index[name]
	if !ok {
		return Descriptor[T]{}, &errors.ToolNotFoundError{Name: name}
	}

	return r.tools[i], nil
}

// List returns metadata for all registered tools in registration order.
// Each call returns fresh values that callers may modify.
func (r *Registry[T]) List() []*mcp.Tool {
	result := make([]*mcp.Tool, 0, len(r.tools))
	for _, d := range r.tools {
		t := NewTool(d.Name, d.Description, d.InputSchema)

		if d.Annotations != nil {
			annotations := *d.Annotations
			t.Annotations = &annotations
		}

		result = append(result, t)
	}

	return result
}

// NewTool creates an mcp.Tool with the given parameters.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// EmptyObjectSchema returns the input schema of a tool that takes no arguments.
// Extra properties are allowed so that callers may send arguments anyway.
func EmptyObjectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
}

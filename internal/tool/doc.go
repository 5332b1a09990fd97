// Package tool implements the tool registry of the counter MCP server.
//
// A registry is assembled once at startup with a Builder. Each Register call
// adds one named Descriptor and fails fast on a name collision. Build freezes
// the registry; after that it is read-only and safe for concurrent use.
//
// Tool handlers receive the state guard rather than the raw state, so every
// read and write of shared state goes through the same exclusion discipline:
//
//	b := tool.NewBuilder[int64]()
//	b.MustRegister(tool.Descriptor[int64]{
//	    Name:        "increment",
//	    Description: "Increments the counter",
//	    Handler: func(ctx context.Context, g *state.Guard[int64], _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
//	        var n int64
//	        _ = g.Do(func(v *int64) error { *v++; n = *v; return nil })
//	        return tool.TextResult(strconv.FormatInt(n, 10)), nil
//	    },
//	})
//	registry := b.Build()
package tool

// Package errors defines error types for the counter MCP server.
//
// This package provides structured error types for every failure the server
// distinguishes: protocol violations, unknown tools, tool handler failures,
// transport failures and registry construction errors. All error types support
// error unwrapping and can be checked using errors.Is and errors.As.
package errors

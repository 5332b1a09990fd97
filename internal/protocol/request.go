package protocol

import (
	"encoding/json"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCP method names handled by a Session.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// Protocol versions.
const (
	// DefaultProtocolVersion is answered when the client requests a version
	// the server does not know.
	DefaultProtocolVersion = "2024-11-05"
)

// SupportedProtocolVersions lists the versions a client may negotiate, newest first.
var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

// IsSupportedVersion reports whether v can be negotiated.
func IsSupportedVersion(v string) bool {
	return slices.Contains(SupportedProtocolVersions, v)
}

// negotiateVersion echoes the requested version when supported and falls back
// to fallback otherwise.
func negotiateVersion(requested, fallback string) string {
	if IsSupportedVersion(requested) {
		return requested
	}

	return fallback
}

// Info is the static, per-server identity advertised in the handshake.
type Info struct {
	// Implementation names the server.
	Implementation *mcp.Implementation

	// Instructions is an optional hint describing the available tools.
	Instructions string

	// ProtocolVersion is answered to clients requesting an unknown version.
	ProtocolVersion string

	// Capabilities declares the supported protocol features.
	// Defaults to tool invocation only.
	Capabilities *mcp.ServerCapabilities
}

// initializeResult builds the handshake response for a client requesting version requested.
func (i *Info) initializeResult(requested string) *mcp.InitializeResult {
	fallback := i.ProtocolVersion
	if fallback == "" {
		fallback = DefaultProtocolVersion
	}

	return &mcp.InitializeResult{
		ProtocolVersion: negotiateVersion(requested, fallback),
		Capabilities:    cloneCapabilities(i.Capabilities),
		ServerInfo:      i.Implementation,
		Instructions:    i.Instructions,
	}
}

// DefaultCapabilities declares tool invocation support.
func DefaultCapabilities() *mcp.ServerCapabilities {
	return &mcp.ServerCapabilities{
		Tools: &mcp.ToolCapabilities{},
	}
}

func cloneCapabilities(c *mcp.ServerCapabilities) *mcp.ServerCapabilities {
	if c == nil {
		return DefaultCapabilities()
	}

	cp := *c

	if c.Tools != nil {
		tools := *c.Tools
		cp.Tools = &tools
	}

	return &cp
}

// initializeParams is the subset of the initialize request the server reads.
// Client capabilities are accepted and ignored.
type initializeParams struct {
	ProtocolVersion string              `json:"protocolVersion"`
	ClientInfo      *mcp.Implementation `json:"clientInfo"`
	Capabilities    json.RawMessage     `json:"capabilities,omitempty"`
}

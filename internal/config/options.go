package config

import (
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/counter-mcp-go/internal/counter"
	"github.com/wagiedev/counter-mcp-go/internal/protocol"
)

// Defaults applied by Normalize.
const (
	DefaultServerName    = "counter-mcp"
	DefaultServerVersion = "0.1.0"
)

// Options configures the counter server.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// ServerName is advertised as serverInfo.name in the handshake.
	ServerName string

	// ServerTitle is an optional display name advertised as serverInfo.title.
	ServerTitle string

	// ServerVersion is advertised as serverInfo.version in the handshake.
	ServerVersion string

	// Instructions describes the tools to the client.
	// If empty, the counter tool instructions are used.
	Instructions string

	// ProtocolVersion is answered to clients requesting an unknown version.
	// Must be one of protocol.SupportedProtocolVersions.
	ProtocolVersion string

	// OverflowPolicy controls counter behavior at the int64 bounds.
	// Valid values: "wrap", "saturate", "reject". Defaults to "wrap".
	OverflowPolicy counter.OverflowPolicy

	// TracerProvider creates tracers for tool call spans.
	// If nil, the global provider is used.
	TracerProvider trace.TracerProvider

	// MeterProvider creates meters for call and session metrics.
	// If nil, the global provider is used.
	MeterProvider metric.MeterProvider
}

// Normalize fills unset fields with defaults and validates the rest.
func (o *Options) Normalize() error {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if o.ServerName == "" {
		o.ServerName = DefaultServerName
	}

	if o.ServerVersion == "" {
		o.ServerVersion = DefaultServerVersion
	}

	if o.Instructions == "" {
		o.Instructions = counter.Instructions
	}

	if o.ProtocolVersion == "" {
		o.ProtocolVersion = protocol.DefaultProtocolVersion
	} else if !protocol.IsSupportedVersion(o.ProtocolVersion) {
		return fmt.Errorf("unsupported protocol version %q", o.ProtocolVersion)
	}

	policy, err := counter.ParseOverflowPolicy(string(o.OverflowPolicy))
	if err != nil {
		return err
	}

	o.OverflowPolicy = policy

	return nil
}

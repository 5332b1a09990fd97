package countermcp

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/counter-mcp-go/internal/config"
	"github.com/wagiedev/counter-mcp-go/internal/counter"
)

// Options configures a Server.
// This is a type alias to the internal config so options need no conversion.
type Options = config.Options

// OverflowPolicy selects what happens when the counter crosses the int64 bounds.
type OverflowPolicy = counter.OverflowPolicy

// Overflow policies.
const (
	// OverflowWrap wraps around using two's-complement arithmetic (default).
	OverflowWrap = counter.OverflowWrap
	// OverflowSaturate clamps the counter at its bounds.
	OverflowSaturate = counter.OverflowSaturate
	// OverflowReject fails the tool call and leaves the counter unchanged.
	OverflowReject = counter.OverflowReject
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithServerInfo sets the name and version advertised in the handshake.
func WithServerInfo(name, version string) Option {
	return func(o *Options) {
		o.ServerName = name
		o.ServerVersion = version
	}
}

// WithServerTitle sets the human-readable server title advertised in the handshake.
func WithServerTitle(title string) Option {
	return func(o *Options) {
		o.ServerTitle = title
	}
}

// WithInstructions replaces the default tool instructions sent to clients.
func WithInstructions(instructions string) Option {
	return func(o *Options) {
		o.Instructions = instructions
	}
}

// WithProtocolVersion sets the version answered to clients that request an
// unknown one. Valid values are listed in SupportedProtocolVersions.
func WithProtocolVersion(version string) Option {
	return func(o *Options) {
		o.ProtocolVersion = version
	}
}

// WithOverflowPolicy controls counter behavior at the int64 bounds.
func WithOverflowPolicy(policy OverflowPolicy) Option {
	return func(o *Options) {
		o.OverflowPolicy = policy
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for tool call spans.
// If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for call and session metrics.
// If not set, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Options) {
		o.MeterProvider = mp
	}
}

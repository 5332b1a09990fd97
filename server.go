package countermcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/counter-mcp-go/internal/counter"
	"github.com/wagiedev/counter-mcp-go/internal/dispatch"
	"github.com/wagiedev/counter-mcp-go/internal/errors"
	"github.com/wagiedev/counter-mcp-go/internal/protocol"
	"github.com/wagiedev/counter-mcp-go/internal/state"
	"github.com/wagiedev/counter-mcp-go/internal/telemetry"
	"github.com/wagiedev/counter-mcp-go/internal/tool"
)

// DefaultProtocolVersion is answered to clients requesting an unknown version.
const DefaultProtocolVersion = protocol.DefaultProtocolVersion

// SupportedProtocolVersions lists the versions a client may negotiate, newest first.
var SupportedProtocolVersions = protocol.SupportedProtocolVersions

// Server serves the counter tools over MCP.
//
// One counter is shared by every session a Server serves. A Server is safe for
// concurrent use: Serve may be called from several goroutines, one per transport.
type Server struct {
	log         *slog.Logger
	options     *Options
	registry    *tool.Registry[int64]
	guard       *state.Guard[int64]
	dispatcher  *dispatch.Dispatcher[int64]
	instruments *telemetry.Instruments
	info        *protocol.Info
}

// New creates a Server with the counter set to zero.
//
// Returns an error if an option is invalid or telemetry instruments cannot be
// created.
func New(opts ...Option) (*Server, error) {
	options := applyOptions(opts)
	if err := options.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	log := options.Logger.With("component", "server")

	registry, err := counter.Tools(options.OverflowPolicy)
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	instruments, err := telemetry.New(options.TracerProvider, options.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("create telemetry instruments: %w", err)
	}

	guard := state.NewGuard[int64](0)

	s := &Server{
		log:         log,
		options:     options,
		registry:    registry,
		guard:       guard,
		dispatcher:  dispatch.New(options.Logger, registry, guard, instruments),
		instruments: instruments,
		info: &protocol.Info{
			Implementation: &mcp.Implementation{
				Name:    options.ServerName,
				Title:   options.ServerTitle,
				Version: options.ServerVersion,
			},
			Instructions:    options.Instructions,
			ProtocolVersion: options.ProtocolVersion,
			Capabilities:    protocol.DefaultCapabilities(),
		},
	}

	log.Debug("Server created",
		"name", options.ServerName,
		"version", options.ServerVersion,
		"tools", registry.Len(),
		"overflow_policy", options.OverflowPolicy,
	)

	return s, nil
}

// Serve connects t and serves one session on it until the peer disconnects.
//
// Returns nil on a graceful close, ctx.Err() on cancellation and a
// *TransportError if the connection cannot be established or fails.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	conn, err := t.Connect(ctx)
	if err != nil {
		s.log.Error("Failed to connect transport", "error", err)

		return &errors.TransportError{Op: "connect", Err: err}
	}

	session := protocol.NewSession(s.options.Logger, conn, s.dispatcher, s.info, s.instruments)

	s.log.Debug("Serving session", "session_id", session.ID())

	return session.Serve(ctx)
}

// ServeAll serves one session per transport concurrently, all sharing the
// counter. It returns when every session has ended. The first failing session
// cancels the others and its error is returned.
func (s *Server) ServeAll(ctx context.Context, transports ...mcp.Transport) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, t := range transports {
		g.Go(func() error {
			return s.Serve(gctx, t)
		})
	}

	return g.Wait()
}

// Run serves one session over stdin/stdout.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Counter returns the current counter value.
func (s *Server) Counter() int64 {
	return s.guard.Load()
}

// Tools returns the advertised tool descriptors in registration order.
func (s *Server) Tools() []*mcp.Tool {
	return s.registry.List()
}

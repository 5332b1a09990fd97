// Package countermcp provides a Model Context Protocol server exposing a
// shared integer counter through three tools.
//
// The tools are:
//
//   - increment adds one to the counter and returns the new value
//   - decrement subtracts one and returns the new value
//   - get_counter returns the current value without changing it
//
// Values are returned as decimal text content. Arguments sent with a call are
// ignored.
//
// # Basic Usage
//
// Serve one client over stdin/stdout:
//
//	srv, err := countermcp.New(countermcp.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Any mcp.Transport from the MCP Go SDK can be served with Serve. ServeAll
// serves several transports at once; all sessions share one counter.
//
// # Sessions
//
// Each session must complete the initialize handshake before listing or
// calling tools. Requests sent earlier are answered with a protocol violation
// error and the session stays open. Unknown tools are reported as JSON-RPC
// errors and leave the counter unchanged.
//
// # Overflow
//
// The counter is an int64. WithOverflowPolicy selects whether a step past the
// bounds wraps (the default), saturates or fails the call.
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	srv, err := countermcp.New(countermcp.WithLogger(logger))
//
// Never log to stdout when serving over stdio.
//
// # Telemetry
//
// Tool calls are traced and counted with OpenTelemetry. Pass providers with
// WithTracerProvider and WithMeterProvider; otherwise the global providers
// are used.
//
// # Error Handling
//
// Serve returns nil when the client disconnects and a *TransportError when
// the connection fails:
//
//	if err := srv.Serve(ctx, transport); err != nil {
//	    var transportErr *countermcp.TransportError
//	    if errors.As(err, &transportErr) {
//	        log.Printf("transport %s failed: %v", transportErr.Op, transportErr.Err)
//	    }
//	}
package countermcp

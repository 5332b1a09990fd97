// Package protocol implements the server side of an MCP session.
//
// A Session owns one mcp.Connection and drives the protocol state machine:
//
//	Uninitialized --initialize--> Ready --transport closed--> Closed
//
// While Uninitialized only initialize is accepted; any other request is
// answered with a protocol violation error and the session stays open. Once
// Ready the session serves tools/list, tools/call and ping. Requests are
// handled strictly one at a time: each response is written before the next
// message is read, so responses are never reordered.
//
// Per-request failures are turned into JSON-RPC error responses. Only
// transport failures end the session.
//
// Example usage:
//
//	conn, _ := (&mcp.StdioTransport{}).Connect(ctx)
//
//	session := protocol.NewSession(log, conn, dispatcher, info, nil)
//	err := session.Serve(ctx)
package protocol

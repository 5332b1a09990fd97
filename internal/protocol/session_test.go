package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/counter-mcp-go/internal/counter"
	"github.com/wagiedev/counter-mcp-go/internal/dispatch"
	"github.com/wagiedev/counter-mcp-go/internal/errors"
	"github.com/wagiedev/counter-mcp-go/internal/state"
)

func TestSession_CounterScenario(t *testing.T) {
	h := newHarness(t)

	result := h.initialize()
	require.Equal(t, DefaultProtocolVersion, result.ProtocolVersion)
	require.Equal(t, "counter-test", result.ServerInfo.Name)
	require.Equal(t, counter.Instructions, result.Instructions)
	require.NotNil(t, result.Capabilities)
	require.NotNil(t, result.Capabilities.Tools)
	require.Equal(t, StateReady, h.session.State())

	steps := []struct {
		tool string
		want string
	}{
		{counter.ToolIncrement, "1"},
		{counter.ToolIncrement, "2"},
		{counter.ToolDecrement, "1"},
		{counter.ToolGetCounter, "1"},
		{counter.ToolGetCounter, "1"},
		{counter.ToolDecrement, "0"},
		{counter.ToolDecrement, "-1"},
	}

	for _, step := range steps {
		require.Equal(t, step.want, h.callTool(step.tool), "calling %s", step.tool)
	}

	require.Equal(t, int64(-1), h.guard.Load())
}

func TestSession_RequestBeforeInitialize(t *testing.T) {
	tests := []struct {
		name   string
		method string
		params any
	}{
		{name: "tools/call", method: MethodToolsCall, params: map[string]any{"name": counter.ToolIncrement}},
		{name: "tools/list", method: MethodToolsList},
		{name: "ping", method: MethodPing},
		{name: "unknown method", method: "resources/list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			resp := h.call(tt.method, tt.params)

			wireErr := wireError(t, resp)
			require.Equal(t, int64(CodeProtocolViolation), wireErr.Code)
			require.Contains(t, wireErr.Message, tt.method)
			require.JSONEq(t,
				`{"method":"`+tt.method+`","state":"uninitialized"}`,
				string(wireErr.Data))

			require.Equal(t, int64(0), h.guard.Load())
			require.Equal(t, StateUninitialized, h.session.State())

			// The session stays usable after the violation.
			h.initialize()
			require.Equal(t, "1", h.callTool(counter.ToolIncrement))
		})
	}
}

func TestSession_SecondInitialize(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	resp := h.call(MethodInitialize, map[string]any{"protocolVersion": "2025-06-18"})

	wireErr := wireError(t, resp)
	require.Equal(t, int64(CodeProtocolViolation), wireErr.Code)
	require.Contains(t, wireErr.Message, "already initialized")
	require.Equal(t, StateReady, h.session.State())

	_, version := h.session.ClientInfo()
	require.Equal(t, "2024-11-05", version, "second handshake must not renegotiate")

	require.Equal(t, "1", h.callTool(counter.ToolIncrement))
}

func TestSession_VersionNegotiation(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{name: "oldest supported", requested: "2024-11-05", want: "2024-11-05"},
		{name: "newer supported", requested: "2025-06-18", want: "2025-06-18"},
		{name: "unknown", requested: "1999-01-01", want: DefaultProtocolVersion},
		{name: "empty", requested: "", want: DefaultProtocolVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			resp := h.call(MethodInitialize, map[string]any{
				"protocolVersion": tt.requested,
				"clientInfo":      map[string]any{"name": "probe", "version": "0.1"},
			})
			require.NoError(t, resp.Error)

			var result mcp.InitializeResult
			require.NoError(t, json.Unmarshal(resp.Result, &result))
			require.Equal(t, tt.want, result.ProtocolVersion)

			clientInfo, version := h.session.ClientInfo()
			require.Equal(t, tt.want, version)
			require.NotNil(t, clientInfo)
			require.Equal(t, "probe", clientInfo.Name)
		})
	}
}

func TestSession_InitializeWithoutParams(t *testing.T) {
	h := newHarness(t)

	resp := h.call(MethodInitialize, nil)
	require.NoError(t, resp.Error)

	clientInfo, version := h.session.ClientInfo()
	require.Nil(t, clientInfo)
	require.Equal(t, DefaultProtocolVersion, version)
}

func TestSession_ListTools(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	list := func(params any) *mcp.ListToolsResult {
		resp := h.call(MethodToolsList, params)
		require.NoError(t, resp.Error)

		var result mcp.ListToolsResult
		require.NoError(t, json.Unmarshal(resp.Result, &result))

		return &result
	}

	names := func(result *mcp.ListToolsResult) []string {
		out := make([]string, 0, len(result.Tools))
		for _, tool := range result.Tools {
			out = append(out, tool.Name)
		}

		return out
	}

	want := []string{counter.ToolIncrement, counter.ToolDecrement, counter.ToolGetCounter}

	first := list(nil)
	require.Equal(t, want, names(first))
	require.Empty(t, first.NextCursor)

	for _, tool := range first.Tools {
		require.NotEmpty(t, tool.Description)
		require.NotNil(t, tool.InputSchema)
	}

	second := list(map[string]any{"cursor": "page-2"})
	require.Equal(t, want, names(second), "cursor is ignored")
	require.Empty(t, second.NextCursor)

	require.Equal(t, int64(0), h.guard.Load(), "listing does not touch the counter")
}

func TestSession_UnknownTool(t *testing.T) {
	h := newHarness(t)
	h.initialize()
	h.callTool(counter.ToolIncrement)

	resp := h.call(MethodToolsCall, map[string]any{"name": "bogus"})

	wireErr := wireError(t, resp)
	require.Equal(t, int64(CodeToolNotFound), wireErr.Code)
	require.Contains(t, wireErr.Message, "bogus")
	require.JSONEq(t, `{"tool":"bogus"}`, string(wireErr.Data))

	require.Equal(t, int64(1), h.guard.Load())
	require.Equal(t, "1", h.callTool(counter.ToolGetCounter))
}

func TestSession_ArgumentsIgnored(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	resp := h.call(MethodToolsCall, map[string]any{
		"name":      counter.ToolIncrement,
		"arguments": map[string]any{"by": 10, "extra": []string{"x"}},
	})
	require.NoError(t, resp.Error)
	require.Equal(t, int64(1), h.guard.Load())
}

func TestSession_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		method string
		params any
	}{
		{name: "call params not an object", method: MethodToolsCall, params: json.RawMessage(`[1,2]`)},
		{name: "call without name", method: MethodToolsCall, params: map[string]any{}},
		{name: "call with null params", method: MethodToolsCall, params: nil},
		{name: "list params not an object", method: MethodToolsList, params: json.RawMessage(`"page"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.initialize()

			wireErr := wireError(t, h.call(tt.method, tt.params))
			require.Equal(t, int64(jsonrpc.CodeInvalidParams), wireErr.Code)
			require.Equal(t, int64(0), h.guard.Load())
		})
	}
}

func TestSession_UnknownMethodAfterInitialize(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	wireErr := wireError(t, h.call("resources/list", nil))
	require.Equal(t, int64(jsonrpc.CodeMethodNotFound), wireErr.Code)
	require.Contains(t, wireErr.Message, "resources/list")
}

func TestSession_Ping(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	resp := h.call(MethodPing, nil)
	require.NoError(t, resp.Error)
	require.JSONEq(t, `{}`, string(resp.Result))
}

func TestSession_NotificationsGetNoResponse(t *testing.T) {
	h := newHarness(t)

	// A notification before the handshake is not a violation.
	h.notify("notifications/cancelled")
	h.initialize()
	h.notify(MethodInitialized)
	h.notify("notifications/roots/list_changed")

	// The next message out must be the ping response, not a reply to a notification.
	resp := h.call(MethodPing, nil)
	require.NoError(t, resp.Error)
	require.Empty(t, h.conn.out)
}

func TestSession_InboundResponseDropped(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	id, err := jsonrpc.MakeID("client-side")
	require.NoError(t, err)

	h.conn.in <- &jsonrpc.Response{ID: id, Result: json.RawMessage(`{}`)}

	require.Equal(t, "1", h.callTool(counter.ToolIncrement))
	require.Empty(t, h.conn.out)
}

func TestSession_ResponsesInRequestOrder(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	const n = 20

	ids := make([]int64, 0, n)
	for range n {
		ids = append(ids, h.send(MethodToolsCall, map[string]any{"name": counter.ToolIncrement}))
	}

	for i, id := range ids {
		resp := h.receive()
		require.Equal(t, id, resp.ID.Raw())
		require.NoError(t, resp.Error)

		var result mcp.CallToolResult
		require.NoError(t, json.Unmarshal(resp.Result, &result))
		require.Len(t, result.Content, 1)

		text, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		require.Equal(t, strconv.Itoa(i+1), text.Text)
	}
}

func TestSession_PeerCloseEndsSession(t *testing.T) {
	h := newHarness(t)
	h.initialize()
	h.callTool(counter.ToolIncrement)

	h.conn.failReads(nil)

	require.NoError(t, h.wait())
	require.Equal(t, StateClosed, h.session.State())
	require.True(t, h.conn.isClosed())
	require.Equal(t, int64(1), h.guard.Load())
}

func TestSession_ReadFailure(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	h.conn.failReads(stderrors.New("malformed frame"))

	err := h.wait()

	var transportErr *errors.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, "read", transportErr.Op)
	require.ErrorContains(t, err, "malformed frame")
	require.Equal(t, StateClosed, h.session.State())
}

func TestSession_WriteFailure(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	h.conn.failWrites(io.ErrShortWrite)
	h.send(MethodToolsCall, map[string]any{"name": counter.ToolIncrement})

	err := h.wait()

	var transportErr *errors.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, "write", transportErr.Op)
	require.ErrorIs(t, err, io.ErrShortWrite)
	require.True(t, h.conn.isClosed())

	// The handler ran even though its response could not be delivered.
	require.Equal(t, int64(1), h.guard.Load())
}

func TestSession_ServeTwice(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	err := h.session.Serve(context.Background())
	require.ErrorIs(t, err, errors.ErrSessionClosed)

	// The first Serve is unaffected.
	require.Equal(t, "1", h.callTool(counter.ToolIncrement))
}

func TestSession_ContextCancel(t *testing.T) {
	registry, err := counter.Tools(counter.OverflowWrap)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := state.NewGuard[int64](0)
	conn := newMockConn()
	session := NewSession(log, conn, dispatch.New(log, registry, guard, nil), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- session.Serve(ctx) }()

	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, StateClosed, session.State())
	require.True(t, conn.isClosed())
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.initialize()

	require.NoError(t, h.session.Close())
	require.NoError(t, h.session.Close())

	require.NoError(t, h.wait())
	require.Equal(t, StateClosed, h.session.State())
}

func TestSession_UniqueIDs(t *testing.T) {
	a := newHarness(t)
	b := newHarness(t)

	require.NotEmpty(t, a.session.ID())
	require.NotEqual(t, a.session.ID(), b.session.ID())
}

func TestState_String(t *testing.T) {
	require.Equal(t, "uninitialized", StateUninitialized.String())
	require.Equal(t, "ready", StateReady.String())
	require.Equal(t, "closed", StateClosed.String())
	require.Equal(t, "unknown", State(42).String())
}

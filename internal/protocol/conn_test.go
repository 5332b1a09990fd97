package protocol

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/counter-mcp-go/internal/counter"
	"github.com/wagiedev/counter-mcp-go/internal/dispatch"
	"github.com/wagiedev/counter-mcp-go/internal/state"
)

// Compile-time verification that mockConn implements mcp.Connection.
var _ mcp.Connection = (*mockConn)(nil)

// mockConn implements mcp.Connection for testing.
type mockConn struct {
	in  chan jsonrpc.Message
	out chan jsonrpc.Message

	mu       sync.Mutex
	readErr  error
	writeErr error

	closeOnce sync.Once
	closed    chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{
		in:     make(chan jsonrpc.Message, 64),
		out:    make(chan jsonrpc.Message, 64),
		closed: make(chan struct{}),
	}
}

func (m *mockConn) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg, ok := <-m.in:
		if !ok {
			m.mu.Lock()
			defer m.mu.Unlock()

			if m.readErr != nil {
				return nil, m.readErr
			}

			return nil, io.EOF
		}

		return msg, nil

	case <-m.closed:
		return nil, mcp.ErrConnectionClosed

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *mockConn) Write(_ context.Context, msg jsonrpc.Message) error {
	m.mu.Lock()
	writeErr := m.writeErr
	m.mu.Unlock()

	if writeErr != nil {
		return writeErr
	}

	m.out <- msg

	return nil
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })

	return nil
}

func (m *mockConn) SessionID() string { return "" }

func (m *mockConn) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// failReads makes the next read after the input is drained fail with err.
func (m *mockConn) failReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
	close(m.in)
}

func (m *mockConn) failWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// harness drives a Session over a mockConn.
type harness struct {
	t       *testing.T
	conn    *mockConn
	session *Session[int64]
	guard   *state.Guard[int64]
	nextID  atomic.Int64
	done    chan error
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	registry, err := counter.Tools(counter.OverflowWrap)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := state.NewGuard[int64](0)
	conn := newMockConn()

	info := &Info{
		Implementation: &mcp.Implementation{Name: "counter-test", Version: "0.0.1"},
		Instructions:   counter.Instructions,
	}

	h := &harness{
		t:       t,
		conn:    conn,
		session: NewSession(log, conn, dispatch.New(log, registry, guard, nil), info, nil),
		guard:   guard,
		done:    make(chan error, 1),
	}

	go func() {
		h.done <- h.session.Serve(context.Background())
	}()

	t.Cleanup(func() { _ = h.session.Close() })

	return h
}

// send writes a call without waiting for its response and returns its id.
func (h *harness) send(method string, params any) int64 {
	h.t.Helper()

	id := h.nextID.Add(1)

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(h.t, err)

		raw = data
	}

	reqID, err := jsonrpc.MakeID(float64(id))
	require.NoError(h.t, err)

	h.conn.in <- &jsonrpc.Request{ID: reqID, Method: method, Params: raw}

	return id
}

// notify writes a notification.
func (h *harness) notify(method string) {
	h.conn.in <- &jsonrpc.Request{Method: method}
}

// receive waits for the next response.
func (h *harness) receive() *jsonrpc.Response {
	h.t.Helper()

	select {
	case msg := <-h.conn.out:
		resp, ok := msg.(*jsonrpc.Response)
		require.True(h.t, ok, "expected *jsonrpc.Response, got %T", msg)

		return resp

	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for response")

		return nil
	}
}

// call sends a request and returns its response.
func (h *harness) call(method string, params any) *jsonrpc.Response {
	h.t.Helper()

	id := h.send(method, params)
	resp := h.receive()
	require.Equal(h.t, id, resp.ID.Raw())

	return resp
}

func (h *harness) initialize() *mcp.InitializeResult {
	h.t.Helper()

	resp := h.call(MethodInitialize, map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "test-client", "version": "1.0.0"},
		"capabilities":    map[string]any{},
	})
	require.NoError(h.t, resp.Error)

	var result mcp.InitializeResult
	require.NoError(h.t, json.Unmarshal(resp.Result, &result))

	return &result
}

// callTool invokes a tool and returns its text content.
func (h *harness) callTool(name string) string {
	h.t.Helper()

	resp := h.call(MethodToolsCall, map[string]any{"name": name})
	require.NoError(h.t, resp.Error)

	var result mcp.CallToolResult
	require.NoError(h.t, json.Unmarshal(resp.Result, &result))
	require.Len(h.t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(h.t, ok, "expected text content, got %T", result.Content[0])

	return text.Text
}

// wait returns the result of Serve.
func (h *harness) wait() error {
	h.t.Helper()

	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for Serve to return")

		return nil
	}
}

func wireError(t *testing.T, resp *jsonrpc.Response) *jsonrpc.Error {
	t.Helper()

	require.Error(t, resp.Error)

	var wireErr *jsonrpc.Error
	require.ErrorAs(t, resp.Error, &wireErr)

	return wireErr
}

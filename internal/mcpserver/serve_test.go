package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stdioPeer plays the client side of a newline-delimited JSON session.
type stdioPeer struct {
	t       *testing.T
	in      *io.PipeWriter
	outR    *io.PipeReader
	out     *bufio.Scanner
	errChan chan error
}

func startStdio(t *testing.T, runtime string) *stdioPeer {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	p := &stdioPeer{
		t:       t,
		in:      inW,
		outR:    outR,
		out:     bufio.NewScanner(outR),
		errChan: make(chan error, 1),
	}

	d := newTestDispatcher(t)
	go func() {
		p.errChan <- Serve(context.Background(), d, Options{Runtime: runtime}, inR, outW)
		_ = outW.Close()
	}()

	return p
}

func (p *stdioPeer) send(msg string) {
	p.t.Helper()
	_, err := io.WriteString(p.in, msg+"\n")
	require.NoError(p.t, err)
}

// readResponse skips notifications and log lines until the reply to id.
func (p *stdioPeer) readResponse(id int) map[string]any {
	p.t.Helper()
	for p.out.Scan() {
		var msg map[string]any
		if err := json.Unmarshal(p.out.Bytes(), &msg); err != nil {
			continue
		}
		if msgID, ok := msg["id"].(float64); ok && int(msgID) == id {
			return msg
		}
	}
	p.t.Fatalf("no response with id %d: %v", id, p.out.Err())
	return nil
}

func (p *stdioPeer) initialize() {
	p.t.Helper()
	p.send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"go-test","version":"1.0"}}}`)
	resp := p.readResponse(1)
	require.Contains(p.t, resp, "result")
	p.send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
}

func (p *stdioPeer) close() error {
	p.t.Helper()
	require.NoError(p.t, p.in.Close())
	go func() { _, _ = io.Copy(io.Discard, p.outR) }()

	select {
	case err := <-p.errChan:
		return err
	case <-time.After(5 * time.Second):
		p.t.Fatal("stdio session did not stop after end of input")
		return nil
	}
}

func callResult(t *testing.T, resp map[string]any) (string, bool) {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "expected a result, got %v", resp)
	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	item := content[0].(map[string]any)
	isError, _ := result["isError"].(bool)
	return item["text"].(string), isError
}

func TestServeStdio(t *testing.T) {
	for _, runtime := range Runtimes {
		t.Run(runtime, func(t *testing.T) {
			p := startStdio(t, runtime)
			p.initialize()

			p.send(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
			list := p.readResponse(2)
			tools := list["result"].(map[string]any)["tools"].([]any)
			assert.Len(t, tools, 2)

			testCases := []struct {
				tool      string
				args      string
				want      string
				wantError bool
			}{
				{"sum", `{"a":2,"b":3}`, "5", false},
				{"sub", `{"a":5,"b":7}`, "-2", false},
				{"sum", `{"a":2147483647,"b":1}`, "overflow", true},
				{"sub", `{"a":"x","b":1}`, "invalid arguments", true},
			}

			for i, tc := range testCases {
				id := 10 + i
				p.send(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, id, tc.tool, tc.args))
				text, isError := callResult(t, p.readResponse(id))
				assert.Equal(t, tc.wantError, isError, "call %d", id)
				assert.True(t, strings.Contains(text, tc.want), "call %d: %q does not contain %q", id, text, tc.want)
			}

			assert.NoError(t, p.close())
		})
	}
}

func TestServeStdioUnknownTool(t *testing.T) {
	for _, runtime := range Runtimes {
		t.Run(runtime, func(t *testing.T) {
			p := startStdio(t, runtime)
			p.initialize()

			p.send(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"mul","arguments":{"a":1,"b":2}}}`)
			resp := p.readResponse(3)
			assert.Contains(t, resp, "error")
			assert.NotContains(t, resp, "result")

			assert.NoError(t, p.close())
		})
	}
}

func TestServeEndOfInputIsClean(t *testing.T) {
	for _, runtime := range Runtimes {
		t.Run(runtime, func(t *testing.T) {
			err := Serve(context.Background(), newTestDispatcher(t), Options{Runtime: runtime},
				strings.NewReader(""), io.Discard)
			assert.NoError(t, err)
		})
	}
}

type lockedBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) responses(t *testing.T) map[int]map[string]any {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()

	byID := make(map[int]map[string]any)
	for _, line := range strings.Split(l.b.String(), "\n") {
		var msg map[string]any
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if id, ok := msg["id"].(float64); ok {
			byID[int(id)] = msg
		}
	}
	return byID
}

func TestServeAnswersPendingCallsAtEndOfInput(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"go-test","version":"1.0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"sum","arguments":{"a":1,"b":1}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"sub","arguments":{"a":10,"b":4}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"sum","arguments":{"a":2147483647,"b":1}}}`,
	}, "\n") + "\n"

	for _, runtime := range Runtimes {
		t.Run(runtime, func(t *testing.T) {
			var out lockedBuffer
			err := Serve(context.Background(), newTestDispatcher(t), Options{Runtime: runtime},
				strings.NewReader(input), &out)
			require.NoError(t, err)

			responses := out.responses(t)
			require.Contains(t, responses, 1)

			want := map[int]struct {
				text    string
				isError bool
			}{
				3: {"2", false},
				4: {"6", false},
				5: {"overflow", true},
			}
			for id, w := range want {
				require.Contains(t, responses, id, "no reply to call %d", id)
				text, isError := callResult(t, responses[id])
				assert.Equal(t, w.isError, isError, "call %d", id)
				assert.Contains(t, text, w.text, "call %d", id)
			}
		})
	}
}

func TestServeUnsupportedRuntime(t *testing.T) {
	err := Serve(context.Background(), newTestDispatcher(t), Options{Runtime: "grpc"},
		strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestSessionError(t *testing.T) {
	cause := errors.New("broken pipe")
	err := error(&SessionError{Runtime: RuntimeGoSDK, Err: cause})

	var sessionErr *SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "go-sdk session failed: broken pipe", err.Error())
}

func TestIsCleanShutdown(t *testing.T) {
	assert.True(t, isCleanShutdown(nil))
	assert.True(t, isCleanShutdown(io.EOF))
	assert.True(t, isCleanShutdown(fmt.Errorf("read: %w", io.EOF)))
	assert.True(t, isCleanShutdown(context.Canceled))
	assert.True(t, isCleanShutdown(fmt.Errorf("%w: calling %q: %v", mcp.ErrConnectionClosed, "tools/call", io.EOF)))
	assert.True(t, isCleanShutdown(fmt.Errorf("%w: %v", errors.New("server is closing"), io.EOF)))
	assert.False(t, isCleanShutdown(errors.New("boom")))
	assert.False(t, isCleanShutdown(fmt.Errorf("%w: %v", errors.New("server is closing"), errors.New("bufio.Scanner: token too long"))))
}

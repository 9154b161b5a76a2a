package mcpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"mcpcalc/internal/calculator"

	"github.com/mark3labs/mcp-go/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Serve runs one MCP session over newline-delimited JSON on in and out, which
// is stdin and stdout in production. It blocks until in is exhausted or ctx
// ends; both count as a clean shutdown. Requests read before end of input are
// answered before Serve returns. Any other failure is a *SessionError.
func Serve(ctx context.Context, d *calculator.Dispatcher, opts Options, in io.Reader, out io.Writer) error {
	opts = opts.withDefaults()

	session := newStdioSession(out)
	defer session.stop()

	var run func() error
	switch opts.Runtime {
	case RuntimeGoSDK:
		transport := &mcp.IOTransport{Reader: session.Reader(), Writer: session}
		s := NewGoSDKServer(d, opts)
		run = func() error { return s.Run(ctx, transport) }
	case RuntimeMCPGo:
		s, err := NewMCPGoServer(d, opts)
		if err != nil {
			return err
		}
		stdio := server.NewStdioServer(s)
		stdio.SetErrorLogger(log.Default())
		run = func() error { return stdio.Listen(ctx, session.Reader(), session) }
	default:
		return unsupportedRuntime(opts.Runtime)
	}

	go session.pump(ctx, in)
	err := run()

	// os.Stdin is a closer; closing it is what unblocks a pending read when
	// the session ends on ctx.
	if c, ok := in.(io.Closer); ok && ctx.Err() != nil {
		_ = c.Close()
	}

	if isCleanShutdown(err) {
		return nil
	}
	return &SessionError{Runtime: opts.Runtime, Err: err}
}

func isCleanShutdown(err error) bool {
	return err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, mcp.ErrConnectionClosed) ||
		isClosing(err)
}

// go-sdk reports end of input as "server is closing: EOF" through an
// unexported jsonrpc2 error that wraps the sentinel but not the read error.
func isClosing(err error) bool {
	msg := err.Error()
	for _, cause := range []error{io.EOF, io.ErrClosedPipe, context.Canceled} {
		if strings.HasSuffix(msg, "server is closing: "+cause.Error()) ||
			strings.HasSuffix(msg, "client is closing: "+cause.Error()) {
			return true
		}
	}
	return false
}

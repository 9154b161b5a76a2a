package mcpserver

import (
	"context"
	"net/http"

	"mcpcalc/internal/calculator"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewGoSDKServer registers every tool the dispatcher describes on a go-sdk
// server. Arguments reach the dispatcher as raw JSON; it does the decoding.
func NewGoSDKServer(d *calculator.Dispatcher, opts Options) *mcp.Server {
	opts = opts.withDefaults()
	info := d.Describe()
	inv := newInvoker(d, opts)

	s := mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, &mcp.ServerOptions{
		Instructions: info.Instructions,
	})

	for _, td := range info.Tools {
		s.AddTool(&mcp.Tool{
			Name:        td.Name,
			Description: td.Description,
			InputSchema: td.InputSchema,
		}, inv.handleGoSDK)
	}

	return s
}

func newGoSDKHTTPHandler(d *calculator.Dispatcher, opts Options) http.Handler {
	s := NewGoSDKServer(d, opts)
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s }, nil)
}

// per-request failures are tool results with IsError set, not protocol errors
func (inv invoker) handleGoSDK(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := inv.invoke(ctx, req.Params.Name, req.Params.Arguments)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil
}

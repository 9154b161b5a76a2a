package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"mcpcalc/internal/calculator"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPGoServer is the mark3labs/mcp-go counterpart of NewGoSDKServer. The
// descriptor schemas are passed through untouched as raw JSON.
func NewMCPGoServer(d *calculator.Dispatcher, opts Options) (*server.MCPServer, error) {
	opts = opts.withDefaults()
	info := d.Describe()
	inv := newInvoker(d, opts)

	s := server.NewMCPServer(opts.Name,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(info.Instructions),
	)

	for _, td := range info.Tools {
		rawSchema, err := json.Marshal(td.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input schema for %q: %w", td.Name, err)
		}
		s.AddTool(mcpgo.NewToolWithRawSchema(td.Name, td.Description, rawSchema), inv.handleMCPGo)
	}

	return s, nil
}

func newMCPGoHTTPHandler(d *calculator.Dispatcher, opts Options, endpoint string) (http.Handler, error) {
	s, err := NewMCPGoServer(d, opts)
	if err != nil {
		return nil, err
	}
	return server.NewStreamableHTTPServer(s, server.WithEndpointPath(endpoint)), nil
}

func (inv invoker) handleMCPGo(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	text, err := inv.invoke(ctx, request.Params.Name, args)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return mcpgo.NewToolResultText(text), nil
}

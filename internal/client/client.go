// Package client talks to a calculator served over streamable HTTP. It keeps
// the session id handed out by initialize and sends it on every later call.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"mcpcalc/internal/jsonrpc"
	"mcpcalc/internal/mcpconst"

	"github.com/sourcegraph/jsonrpc2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Tool is one entry of a tools/list reply.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Implementation names the server on the other end.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the part of the initialize reply the client uses.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Instructions    string         `json:"instructions"`
	ServerInfo      Implementation `json:"serverInfo"`
}

type Client struct {
	url             string
	httpClient      http.Client
	sessionID       string
	protocolVersion string
}

func New(url string) *Client {
	return &Client{
		url:        url,
		httpClient: http.Client{Timeout: 30 * time.Second},
	}
}

// SessionID is empty until Initialize succeeds.
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) headers() map[string]string {
	h := map[string]string{}
	if c.sessionID != "" {
		h[mcpconst.MCP_SESSION_ID_HEADER] = c.sessionID
	}
	if c.protocolVersion != "" {
		h[mcpconst.MCP_PROTOCOL_VERSION_HEADER] = c.protocolVersion
	}
	return h
}

// Initialize runs the initialize / notifications/initialized handshake.
func (c *Client) Initialize(ctx context.Context) (*InitializeResult, error) {
	log.Printf("initializing MCP session with %s", c.url)

	params := map[string]any{
		"protocolVersion": mcpconst.ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      Implementation{Name: "mcpcalc", Version: "1.0"},
	}
	httpReq, err := jsonrpc.NewJSONRPCRequest(ctx, c.url, mcpconst.Initialize, params, c.headers(), http.NewRequestWithContext)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed 'initialize' jsonrpc request: %v", err)
	}

	resp, httpResp, err := jsonrpc.DoRequest(ctx, &c.httpClient, httpReq)
	if err != nil {
		return nil, err // DoRequest already wraps the error.
	}

	var result InitializeResult
	if err := unpackResult(resp, &result); err != nil {
		return nil, err
	}

	sessionID := httpResp.Header.Get(mcpconst.MCP_SESSION_ID_HEADER)
	if sessionID == "" {
		return nil, status.Errorf(codes.Internal, "did not find MCP Session ID header: %s", mcpconst.MCP_SESSION_ID_HEADER)
	}
	c.sessionID = sessionID
	c.protocolVersion = result.ProtocolVersion

	// follows up initialize with an initialized (notice the past tense) ack
	ackReq, err := jsonrpc.NewJSONRPCRequest(ctx, c.url, mcpconst.NotificationsInitialized, nil, c.headers(), http.NewRequestWithContext)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed 'initialized' http request: %v", err)
	}
	if _, _, err := jsonrpc.DoRequest(ctx, &c.httpClient, ackReq); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to ack MCP session initialization: %v", err)
	}

	log.Printf("MCP session %s initialized", c.sessionID)
	return &result, nil
}

func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := c.doRpcCall(ctx, mcpconst.ToolsList, map[string]any{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool and returns its text content. A result flagged
// isError comes back as an InvalidArgument status carrying that text.
func (c *Client) CallTool(ctx context.Context, name string, args any) (string, error) {
	params := map[string]any{
		"name":      name,
		"arguments": args,
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := c.doRpcCall(ctx, mcpconst.ToolsCall, params, &result); err != nil {
		return "", err
	}

	var texts []string
	for _, content := range result.Content {
		if content.Type != "text" {
			log.Printf("unknown content type: %s", content.Type)
			continue
		}
		texts = append(texts, content.Text)
	}
	text := strings.Join(texts, "\n")

	if result.IsError {
		return "", status.Errorf(codes.InvalidArgument, "%s", text)
	}
	return text, nil
}

func (c *Client) Ping(ctx context.Context) error {
	var result struct{}
	return c.doRpcCall(ctx, mcpconst.Ping, nil, &result)
}

// This is the heart of doing a session jsonrpc call and unpacking, then deserializing the result.
func (c *Client) doRpcCall(ctx context.Context, jsonRpcMethod mcpconst.JsonRpcMethod, params any, rpcResultPtr any) error {
	if c.sessionID == "" {
		return status.Errorf(codes.FailedPrecondition, "%s called before initialize", jsonRpcMethod)
	}

	httpReq, err := jsonrpc.NewJSONRPCRequest(ctx, c.url, jsonRpcMethod, params, c.headers(), http.NewRequestWithContext)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to create http request for %s: %v", jsonRpcMethod, err)
	}

	resp, _, err := jsonrpc.DoRequest(ctx, &c.httpClient, httpReq)
	if err != nil {
		return err // DoRequest already wraps the error.
	}

	return unpackResult(resp, rpcResultPtr)
}

func unpackResult(resp *jsonrpc2.Response, rpcResultPtr any) error {
	if resp == nil {
		return status.Errorf(codes.Internal, "MCP server returned a nil response")
	}

	if resp.Error != nil {
		return status.Errorf(codes.Aborted, "MCP server returned an error (code %d): %s",
			resp.Error.Code, resp.Error.Message)
	}

	if resp.Result == nil {
		return status.Errorf(codes.Internal, "MCP server returned a nil result")
	}

	if err := json.Unmarshal(*resp.Result, rpcResultPtr); err != nil {
		return status.Errorf(codes.Internal, "failed to unmarshal result from mcp server: %v", err)
	}

	return nil
}

// Close ends the session on the server. Servers that do not support session
// termination answer 405, which is not an error.
func (c *Client) Close(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create session delete request: %w", err)
	}
	for header, val := range c.headers() {
		req.Header.Set(header, val)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return status.Errorf(codes.Unavailable, "failed to end mcp session: %v", err)
	}
	httpResp.Body.Close()

	c.sessionID = ""
	if httpResp.StatusCode >= 300 && httpResp.StatusCode != http.StatusMethodNotAllowed {
		return status.Errorf(codes.Unavailable, "mcp server returned status %d ending session", httpResp.StatusCode)
	}
	return nil
}

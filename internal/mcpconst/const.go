package mcpconst

import "net/http"

var MCP_SESSION_ID_HEADER = http.CanonicalHeaderKey("mcp-session-id")

var MCP_PROTOCOL_VERSION_HEADER = http.CanonicalHeaderKey("mcp-protocol-version")

// ProtocolVersion is the MCP revision our client asks for during initialize.
const ProtocolVersion = "2025-06-18"

// Method is a typed string for JSON-RPC method names.
type JsonRpcMethod string

// Defines the standard JSON-RPC methods for MCP.
const (
	Initialize               JsonRpcMethod = "initialize"
	NotificationsInitialized JsonRpcMethod = "notifications/initialized"
	ToolsList                JsonRpcMethod = "tools/list"
	ToolsCall                JsonRpcMethod = "tools/call"
	Ping                     JsonRpcMethod = "ping"
)

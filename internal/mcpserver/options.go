// Package mcpserver binds the calculator dispatcher to an MCP runtime. Two
// runtimes are supported, the official go-sdk and mark3labs/mcp-go, each
// over stdio or streamable HTTP.
package mcpserver

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	RuntimeGoSDK = "go-sdk"
	RuntimeMCPGo = "mcp-go"
)

// Runtimes lists the supported runtime names, default first.
var Runtimes = []string{RuntimeGoSDK, RuntimeMCPGo}

const (
	DefaultName     = "calculator"
	DefaultVersion  = "0.0.0"
	DefaultEndpoint = "/mcp"
)

const tracerName = "mcpcalc/internal/mcpserver"

// Options configure the MCP server built around a dispatcher.
type Options struct {
	Name    string
	Version string
	Runtime string
	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.Runtime == "" {
		o.Runtime = RuntimeGoSDK
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
	return o
}

// SessionError reports a failure of the transport or session layer. Unlike
// per-request errors it ends the serving loop.
type SessionError struct {
	Runtime string
	Err     error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s session failed: %v", e.Runtime, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func unsupportedRuntime(runtime string) error {
	return fmt.Errorf("runtime %q is not supported, use one of %v", runtime, Runtimes)
}

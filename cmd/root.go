package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mcpcalc/internal/mcpserver"

	"github.com/spf13/cobra"
)

const (
	TRANSPORT_STDIO = "stdio"
	TRANSPORT_HTTP  = "http"
)

var (
	transport    string
	runtimeName  string
	serverName   string
	addr         string
	endpoint     string
	healthAddr   string
	otlpEndpoint string
	sampleRatio  float64
)

var rootCmd = &cobra.Command{
	Use:   "mcpcalc",
	Short: "A simple calculator MCP server",
	Long: `mcpcalc serves the sum and sub tools over the Model Context Protocol.
By default it speaks MCP on stdin/stdout; --transport=http serves the
streamable HTTP transport instead.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.Flags().StringVar(&transport, "transport", TRANSPORT_STDIO, "The transport to serve on: stdio or http")
	rootCmd.Flags().StringVar(&runtimeName, "runtime", mcpserver.RuntimeGoSDK, "The MCP runtime: go-sdk or mcp-go")
	rootCmd.Flags().StringVarP(&serverName, "name", "n", mcpserver.DefaultName, "The name the server reports on initialize")
	rootCmd.Flags().StringVar(&addr, "addr", "localhost:8888", "The address to listen on with the http transport")
	rootCmd.Flags().StringVar(&endpoint, "endpoint", mcpserver.DefaultEndpoint, "The URI path of the MCP endpoint with the http transport")
	rootCmd.Flags().StringVar(&healthAddr, "health-addr", "", "The address of the gRPC health server, empty disables it")
	rootCmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "The OTLP/HTTP endpoint traces are exported to, empty disables tracing")
	rootCmd.Flags().Float64Var(&sampleRatio, "trace-sample-ratio", 1, "The share of traces recorded, between 0 and 1")
}

// Execute runs the root command and exits the process with status 1 on error.
func Execute() {
	// stdout carries the stdio protocol, keep logs off it
	log.SetOutput(os.Stderr)
	log.SetPrefix("[mcpcalc] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"mcpcalc/internal/calculator"
	"mcpcalc/internal/closeline"
	"mcpcalc/internal/health"
	"mcpcalc/internal/mcpserver"
	"mcpcalc/internal/telemetry"

	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if transport != TRANSPORT_STDIO && transport != TRANSPORT_HTTP {
		return fmt.Errorf("transport %q is not supported, use %s or %s", transport, TRANSPORT_STDIO, TRANSPORT_HTTP)
	}

	d, err := calculator.NewDispatcher()
	if err != nil {
		return fmt.Errorf("failed to build dispatcher: %w", err)
	}

	var cl closeline.CloseLine
	defer cl.Close()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    serverName,
		ServiceVersion: version,
		Endpoint:       otlpEndpoint,
		SampleRatio:    sampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	cl.AddE("tracing", func() error {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(flushCtx)
	})

	var healthServer *health.Server
	if healthAddr != "" {
		healthServer = health.New(serverName)
		tcpAddr, stopHealth, err := healthServer.Start(healthAddr)
		if err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		cl.Add(stopHealth)
		log.Printf("gRPC health server listening on %s", tcpAddr)
	}

	opts := mcpserver.Options{Name: serverName, Version: version, Runtime: runtimeName}

	switch transport {
	case TRANSPORT_HTTP:
		return serveHTTP(ctx, d, opts, &cl, healthServer)
	default:
		return serveStdio(ctx, cmd, d, opts, healthServer)
	}
}

func serveStdio(ctx context.Context, cmd *cobra.Command, d *calculator.Dispatcher, opts mcpserver.Options, healthServer *health.Server) error {
	setServing(healthServer, true)
	defer setServing(healthServer, false)

	log.Printf("Calculator MCP server '%s' serving on stdio with %s", opts.Name, opts.Runtime)
	if err := mcpserver.Serve(ctx, d, opts, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return err
	}
	log.Printf("stdio session closed")
	return nil
}

func serveHTTP(ctx context.Context, d *calculator.Dispatcher, opts mcpserver.Options, cl *closeline.CloseLine, healthServer *health.Server) error {
	handler, err := mcpserver.HTTPHandler(d, opts, endpoint)
	if err != nil {
		return err
	}

	listener, stopHTTP, done, err := mcpserver.RunServerAsync(addr, handler)
	if err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	cl.Add(func() {
		stopHTTP()
		<-done
	})
	// flipped first on shutdown so health checks see NOT_SERVING while requests drain
	cl.Add(func() { setServing(healthServer, false) })

	setServing(healthServer, true)
	log.Printf("Calculator MCP server '%s' listening on %s%s with %s", opts.Name, listener.Addr(), endpoint, opts.Runtime)

	<-ctx.Done()
	log.Printf("shutting down: %v", context.Cause(ctx))
	return nil
}

func setServing(healthServer *health.Server, serving bool) {
	if healthServer != nil {
		healthServer.SetServing(serving)
	}
}

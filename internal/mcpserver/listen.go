package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// RunServerAsync serves handler on addr in the background. Cancelling the
// returned func triggers a graceful shutdown bounded by five seconds; done is
// closed once the server has stopped.
func RunServerAsync(addr string, handler http.Handler) (net.Listener, context.CancelFunc, <-chan struct{}, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, func() {}, nil, fmt.Errorf("net.Listen() failed: %w", err)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server on %s stopped: %v", listener.Addr(), err)
		}
	}()

	// This listens for the ctx cancel() func, then triggers graceful shutdown
	go func() {
		defer close(done)
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http server shutdown: %v", err)
		}
	}()

	return listener, cancel, done, nil
}

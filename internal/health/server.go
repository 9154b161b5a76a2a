// Package health exposes the standard gRPC health service next to the MCP
// server so orchestrators can check on a running calculator.
package health

import (
	"log"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server is a gRPC server carrying only the health and reflection services.
type Server struct {
	serviceName string
	grpcServer  *grpc.Server
	health      *grpchealth.Server
}

// New creates a Server whose overall status and serviceName status both
// start as NOT_SERVING.
func New(serviceName string) *Server {
	hs := grpchealth.NewServer()
	gs := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	grpc_health_v1.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{
		serviceName: serviceName,
		grpcServer:  gs,
		health:      hs,
	}
	s.SetServing(false)
	return s
}

// SetServing flips the overall status and the service status together.
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.serviceName, status)
}

// Start starts the gRPC server in its own goroutine. returns a func to shut it down.
func (s *Server) Start(addr string) (*net.TCPAddr, func(), error) {
	noopCancelFunc := func() {}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, noopCancelFunc, err
	}

	stop := s.ServeListener(lis)
	tcpAddr, _ := lis.Addr().(*net.TCPAddr)
	return tcpAddr, stop, nil
}

// ServeListener serves on an existing listener, e.g. a bufconn in tests.
func (s *Server) ServeListener(lis net.Listener) func() {
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			log.Printf("health grpcServer.Serve error: %v", err)
		}
	}()
	return s.Stop
}

// Stop marks every service NOT_SERVING and gracefully stops the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

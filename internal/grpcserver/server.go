package grpcserver

import (
	"errors"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"cofipei/internal/log"
)

// ServiceName is the health-checked service reported alongside the
// server-wide "" entry.
const ServiceName = "cofipei.ChartService"

// Server exposes the standard gRPC health service.
type Server struct {
	addr   string
	health *health.Server
	logger *log.Logger
	Server *grpc.Server

	mu  sync.Mutex
	lis net.Listener
}

func New(addr string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewDefault()
	}
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		addr:   addr,
		health: hs,
		logger: logger.WithComponent(log.ComponentGRPC),
		Server: s,
	}
}

// SetServing flips both the named service and the server-wide status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Listen binds the configured address and returns the bound address.
func (s *Server) Listen() (net.Addr, error) {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()
	return lis.Addr(), nil
}

// Serve blocks serving on the listener from Listen.
func (s *Server) Serve() error {
	s.mu.Lock()
	lis := s.lis
	s.mu.Unlock()
	if lis == nil {
		return errors.New("grpc server: Listen must be called before Serve")
	}

	s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.Server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Start listens and serves.
func (s *Server) Start() error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop marks the server NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
}

package health

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service name the gateway reports under, next to the overall "" status.
const ServiceName = "update.gateway.v1.Gateway"

// Server reports gateway readiness.
type Server struct {
	// health is the stock grpc-go implementation holding the statuses.
	health *health.Server
}

// NewServer creates a server that reports NOT_SERVING until SetServing(true).
func NewServer() *Server {
	s := &Server{
		health: health.NewServer(),
	}

	s.SetServing(false)

	return s
}

// Register attaches the health service to a gRPC server.
func (s *Server) Register(registrar grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(registrar, s.health)
}

// SetServing flips the overall and gateway statuses together.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Shutdown reports NOT_SERVING permanently; later SetServing calls are ignored.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

package httpapi

import (
	"context"
	"time"

	"freightdesk.org/internal/obs"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const serviceName = "freightdesk-api"

// GRPCServer exposes the standard gRPC health protocol backed by the same
// readiness probe as /readyz, for load balancers that speak gRPC health
// checks instead of HTTP.
type GRPCServer struct {
	grpc_health_v1.UnimplementedHealthServer

	readiness ReadyProbe
	version   string
}

// NewGRPCServer creates the gRPC service wrapper.
func NewGRPCServer(rp ReadyProbe, version string) *GRPCServer {
	return &GRPCServer{
		readiness: rp,
		version:   version,
	}
}

// Register attaches the health service to srv.
func (s *GRPCServer) Register(srv *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(srv, s)
}

// Check evaluates readiness and mirrors the result into the ready gauge.
func (s *GRPCServer) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		return &grpc_health_v1.HealthCheckResponse{
			Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
		}, nil
	}
	obs.SetReady(true)
	return &grpc_health_v1.HealthCheckResponse{
		Status: grpc_health_v1.HealthCheckResponse_SERVING,
	}, nil
}

// Watch streams the current status once per tick until the client goes away.
func (s *GRPCServer) Watch(req *grpc_health_v1.HealthCheckRequest, srv grpc_health_v1.Health_WatchServer) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	send := func() error {
		resp, err := s.Check(srv.Context(), req)
		if err != nil {
			return err
		}
		return srv.Send(resp)
	}
	if err := send(); err != nil {
		return status.Errorf(codes.Unavailable, "send health status: %v", err)
	}
	for {
		select {
		case <-srv.Context().Done():
			return nil
		case <-ticker.C:
			if err := send(); err != nil {
				return status.Errorf(codes.Unavailable, "send health status: %v", err)
			}
		}
	}
}

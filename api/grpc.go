package api

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"darkest-dnd-server/server"
)

// HealthService is the gRPC health service name covering the hub.
const HealthService = "darkest.Hub"

// NewGRPCServer builds the operator gRPC server with the standard health
// service and reflection. Serving status starts as NOT_SERVING; see
// WatchHealth.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	gs := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	return gs, hs
}

// WatchHealth mirrors hub liveness into hs until ctx is done, then marks
// every service NOT_SERVING.
func WatchHealth(ctx context.Context, hub *server.Hub, hs *health.Server, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if hub.Running() {
			status = healthpb.HealthCheckResponse_SERVING
		}
		if status != last {
			hs.SetServingStatus("", status)
			hs.SetServingStatus(HealthService, status)
			last = status
		}
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

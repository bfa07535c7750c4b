package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/cartkeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported through the health service alongside
// the empty, server-wide name.
const ServiceName = "cartkeeper"

// ReadinessInterval is how often the readiness check is repeated.
const ReadinessInterval = 10 * time.Second

// ReadinessCheck decides the serving status. It runs at startup and then
// every ReadinessInterval.
type ReadinessCheck func(ctx context.Context) error

type GRPCServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	ready    ReadinessCheck
	interval time.Duration
	status   healthpb.HealthCheckResponse_ServingStatus
}

func NewGRPCServer(a string, l logging.Logger, ready ReadinessCheck) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
		ready:    ready,
		interval: ReadinessInterval,
		status:   healthpb.HealthCheckResponse_SERVICE_UNKNOWN,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.checkReadiness(ctx)
	if s.ready != nil {
		go s.pollReadiness(ctx)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		// flips every service to NOT_SERVING
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

// checkReadiness runs the readiness check once and publishes the result.
// Only transitions are logged.
func (s *GRPCServer) checkReadiness(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.ready != nil {
		checkCtx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.ready(checkCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.status != healthpb.HealthCheckResponse_NOT_SERVING {
				s.logger.Warn(ctx, "readiness check failed", "error", err.Error())
			}
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	if status == s.status {
		return
	}
	if s.status == healthpb.HealthCheckResponse_NOT_SERVING {
		s.logger.Info(ctx, "readiness restored")
	}
	s.status = status
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *GRPCServer) pollReadiness(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkReadiness(ctx)
		}
	}
}

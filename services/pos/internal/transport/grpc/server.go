package grpc

import (
	"context"
	"net"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	googleGrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported by the health service for the POS engine.
const ServiceName = "pos.PosService"

// Server hosts the order and table services next to health, with tracing and
// prometheus interceptors. Order and table calls use the json codec.
type Server struct {
	srv    *googleGrpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewServer(logger *zap.Logger, orders *OrderHandler, tables *TableHandler) *Server {
	srv := googleGrpc.NewServer(
		googleGrpc.StatsHandler(otelgrpc.NewServerHandler()),
		googleGrpc.ChainUnaryInterceptor(
			grpc_prometheus.UnaryServerInterceptor,
			loggingInterceptor(logger),
		),
		googleGrpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	srv.RegisterService(&orderServiceDesc, orders)
	srv.RegisterService(&tableServiceDesc, tables)

	grpc_prometheus.Register(srv)

	return &Server{srv: srv, health: hs, logger: logger}
}

// SetServing flips both the overall and the named service status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) Serve(lis net.Listener) error {
	s.SetServing(true)
	return s.srv.Serve(lis)
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func loggingInterceptor(logger *zap.Logger) googleGrpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *googleGrpc.UnaryServerInfo,
		handler googleGrpc.UnaryHandler,
	) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			err = ToStatus(err)

			mylogger.Warn(
				ctx,
				logger,
				"gRPC call failed",
				zap.String("method", info.FullMethod),
				zap.Error(err),
			)
		}

		return resp, err
	}
}

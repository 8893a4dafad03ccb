// Package grpc exposes the group store over the SyncGroups gRPC service.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/readersync/internal/groups"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
	"github.com/dmitrijs2005/readersync/internal/rpc"
)

// GroupService is what the handlers need from groups.Service.
type GroupService interface {
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, code, deviceID string) error
	Fetch(ctx context.Context, code string) (*groups.Snapshot, error)
	Put(ctx context.Context, code string, env *models.Envelope, revision string) (*groups.PutResult, error)
}

type GRPCServer struct {
	address        string
	groups         GroupService
	logger         logging.Logger
	requestTimeout time.Duration
}

func NewGRPCServer(a string, l logging.Logger, gs GroupService, requestTimeout time.Duration) *GRPCServer {
	return &GRPCServer{
		address:        a,
		logger:         l.With("module", "grpc_server"),
		groups:         gs,
		requestTimeout: requestTimeout,
	}
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run over an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.deviceIDInterceptor, s.requestInterceptor))
	rpc.RegisterSyncGroupsServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}

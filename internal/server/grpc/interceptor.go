package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/readersync/internal/rpc"
)

type ctxKey string

const deviceIDKey ctxKey = "deviceID"

// deviceIDInterceptor copies the caller's anonymous device id from request
// metadata into the context. Calls without one are still served.
func (s *GRPCServer) deviceIDInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(rpc.DeviceIDHeader); len(values) > 0 && values[0] != "" {
			ctx = context.WithValue(ctx, deviceIDKey, values[0])
		}
	}
	return handler(ctx, req)
}

func deviceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(deviceIDKey).(string)
	return v
}

// requestInterceptor bounds every call with the configured timeout and
// logs its outcome.
func (s *GRPCServer) requestInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "request",
		"method", info.FullMethod,
		"device_id", deviceIDFromContext(ctx),
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}

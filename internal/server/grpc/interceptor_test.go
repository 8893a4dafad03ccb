package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/rpc"
)

func TestDeviceIDInterceptor(t *testing.T) {
	s := NewGRPCServer("", logging.Nop(), nil, 0)
	info := &grpc.UnaryServerInfo{FullMethod: rpc.PingMethod}

	var got string
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		got = deviceIDFromContext(ctx)
		return "ok", nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(rpc.DeviceIDHeader, "dev-9"))
	resp, err := s.deviceIDInterceptor(ctx, nil, info, h)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "dev-9", got)

	_, err = s.deviceIDInterceptor(context.Background(), nil, info, h)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRequestInterceptor_AppliesTimeout(t *testing.T) {
	s := NewGRPCServer("", logging.Nop(), nil, 50*time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: rpc.GetGroupMethod}

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 40*time.Millisecond)
		return nil, nil
	}
	_, err := s.requestInterceptor(context.Background(), nil, info, h)
	require.NoError(t, err)

	s = NewGRPCServer("", logging.Nop(), nil, 0)
	h = func(ctx context.Context, req interface{}) (interface{}, error) {
		_, ok := ctx.Deadline()
		assert.False(t, ok)
		return nil, nil
	}
	_, err = s.requestInterceptor(context.Background(), nil, info, h)
	require.NoError(t, err)
}

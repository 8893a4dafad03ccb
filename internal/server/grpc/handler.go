package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/identity"
	"github.com/dmitrijs2005/readersync/internal/models"
	"github.com/dmitrijs2005/readersync/internal/rpc"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) GroupExists(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	code := req.GetValue()
	if err := identity.ValidateCode(code); err != nil {
		return nil, toStatus(err)
	}
	ok, err := s.groups.Exists(ctx, code)
	if err != nil {
		s.logger.Error(ctx, "exists failed", "code", code, "error", err)
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *GRPCServer) CreateGroup(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	var in rpc.CreateGroupRequest
	if err := rpc.Unpack(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := identity.ValidateCode(in.Code); err != nil {
		return nil, toStatus(err)
	}
	if in.DeviceID == "" {
		in.DeviceID = deviceIDFromContext(ctx)
	}
	if err := s.groups.Create(ctx, in.Code, in.DeviceID); err != nil {
		if !errors.Is(err, common.ErrGroupExists) {
			s.logger.Error(ctx, "create failed", "code", in.Code, "error", err)
		}
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) GetGroup(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	code := req.GetValue()
	if err := identity.ValidateCode(code); err != nil {
		return nil, toStatus(err)
	}
	snap, err := s.groups.Fetch(ctx, code)
	if err != nil {
		s.logger.Error(ctx, "fetch failed", "code", code, "error", err)
		return nil, toStatus(err)
	}

	out := rpc.GroupSnapshot{Revision: snap.Revision, DeviceCount: snap.DeviceCount}
	if snap.Envelope != nil {
		b, err := snap.Envelope.Encode()
		if err != nil {
			return nil, status.Error(codes.Internal, "internal error")
		}
		out.Envelope = b
	}
	res, err := rpc.Pack(out)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return res, nil
}

func (s *GRPCServer) PutGroup(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var in rpc.PutGroupRequest
	if err := rpc.Unpack(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := identity.ValidateCode(in.Code); err != nil {
		return nil, toStatus(err)
	}
	env, err := models.DecodeEnvelope(in.Envelope)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if env.SyncCode != "" && env.SyncCode != in.Code {
		return nil, status.Error(codes.InvalidArgument, "envelope belongs to another sync code")
	}

	res, err := s.groups.Put(ctx, in.Code, env, in.Revision)
	if err != nil {
		if errors.Is(err, common.ErrRevisionConflict) {
			s.logger.Info(ctx, "stale push rejected", "code", in.Code, "revision", in.Revision)
		} else {
			s.logger.Error(ctx, "put failed", "code", in.Code, "error", err)
		}
		return nil, toStatus(err)
	}

	out, err := rpc.Pack(rpc.PutGroupResponse{Revision: res.Revision, DeviceCount: res.DeviceCount})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// toStatus maps sentinel errors onto gRPC codes. Unknown errors are not
// leaked to clients.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidSyncCode):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrGroupNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrGroupExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrRevisionConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

package transport

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
	"github.com/dmitrijs2005/readersync/internal/rpc"
)

// GRPCTransport talks to a readersync server.
type GRPCTransport struct {
	conn     *grpc.ClientConn
	client   rpc.SyncGroupsClient
	deviceID string
	timeout  time.Duration
	logger   logging.Logger
}

func NewGRPC(addr, deviceID string, timeout time.Duration, l logging.Logger) (*GRPCTransport, error) {
	t := &GRPCTransport{deviceID: deviceID, timeout: timeout, logger: l.With("module", "transport.grpc")}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(t.deviceIDInterceptor))
	if err != nil {
		return nil, wrap("grpc", "connect", err)
	}
	t.conn = conn
	t.client = rpc.NewSyncGroupsClient(conn)
	return t, nil
}

func withDeviceID(ctx context.Context, id string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(rpc.DeviceIDHeader, id)
	return metadata.NewOutgoingContext(ctx, md)
}

func (t *GRPCTransport) deviceIDInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if t.deviceID != "" {
		ctx = withDeviceID(ctx, t.deviceID)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (t *GRPCTransport) Name() string { return "grpc" }
func (t *GRPCTransport) Remote() bool { return true }

// Ping checks that the server answers.
func (t *GRPCTransport) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	_, err := t.client.Ping(ctx, &emptypb.Empty{})
	return t.mapError("ping", err)
}

func (t *GRPCTransport) GroupExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	resp, err := t.client.GroupExists(ctx, wrapperspb.String(code))
	if err != nil {
		return false, t.mapError("exists", err)
	}
	return resp.GetValue(), nil
}

func (t *GRPCTransport) CreateGroup(ctx context.Context, code, deviceID string) error {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	req, err := rpc.Pack(rpc.CreateGroupRequest{Code: code, DeviceID: deviceID})
	if err != nil {
		return wrap(t.Name(), "create", err)
	}
	_, err = t.client.CreateGroup(ctx, req)
	return t.mapError("create", err)
}

func (t *GRPCTransport) FetchGroup(ctx context.Context, code string) (*Snapshot, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	resp, err := t.client.GetGroup(ctx, wrapperspb.String(code))
	if err != nil {
		return nil, t.mapError("fetch", err)
	}

	var out rpc.GroupSnapshot
	if err := rpc.Unpack(resp, &out); err != nil {
		return nil, wrap(t.Name(), "fetch", err)
	}

	snap := &Snapshot{Revision: out.Revision, DeviceCount: max(out.DeviceCount, 1)}
	if len(out.Envelope) > 0 {
		env, err := models.DecodeEnvelope(out.Envelope)
		if err != nil {
			t.logger.Warn(ctx, "server sent unusable envelope, treating as empty", "code", code, "error", err)
			return snap, nil
		}
		snap.Envelope = env
	}
	return snap, nil
}

func (t *GRPCTransport) PutGroup(ctx context.Context, code string, env *models.Envelope, revision string) (*PutResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	data, err := env.Encode()
	if err != nil {
		return nil, wrap(t.Name(), "put", err)
	}
	req, err := rpc.Pack(rpc.PutGroupRequest{Code: code, Envelope: data, Revision: revision})
	if err != nil {
		return nil, wrap(t.Name(), "put", err)
	}

	resp, err := t.client.PutGroup(ctx, req)
	if err != nil {
		return nil, t.mapError("put", err)
	}
	var out rpc.PutGroupResponse
	if err := rpc.Unpack(resp, &out); err != nil {
		return nil, wrap(t.Name(), "put", err)
	}
	return &PutResult{Revision: out.Revision, DeviceCount: max(out.DeviceCount, 1)}, nil
}

func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}

// mapError translates gRPC status codes into the common sentinels.
func (t *GRPCTransport) mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		err = fmt.Errorf("%w: %s", common.ErrUnavailable, st.Message())
	case codes.NotFound:
		err = common.ErrGroupNotFound
	case codes.AlreadyExists:
		err = common.ErrGroupExists
	case codes.Aborted:
		err = common.ErrRevisionConflict
	default:
		err = fmt.Errorf("rpc error: %w", err)
	}
	return wrap(t.Name(), op, err)
}

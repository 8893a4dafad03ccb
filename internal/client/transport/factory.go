package transport

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/readersync/internal/client/config"
	"github.com/dmitrijs2005/readersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/logging"
)

// Notifier is implemented by transports that can announce pushes made by
// other devices.
type Notifier interface {
	Changes(ctx context.Context, code, self string) <-chan string
}

// New builds the transport selected by cfg.Backend. meta backs the local
// fallback; deviceID identifies this device to servers that ask for it.
func New(ctx context.Context, cfg *config.Config, meta metadata.Repository, deviceID string, l logging.Logger) (Transport, error) {
	switch cfg.Backend {
	case "", config.BackendLocal:
		return NewLocal(meta, l), nil
	case config.BackendPostgres:
		return checked(NewPostgres(ctx, cfg.PostgresDSN, cfg.RequestTimeout, l))
	case config.BackendGRPC:
		return checked(NewGRPC(cfg.GRPCAddr, deviceID, cfg.RequestTimeout, l))
	case config.BackendS3:
		return checked(NewS3(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Timeout:   cfg.RequestTimeout,
		}, l))
	case config.BackendRedis:
		return checked(NewRedis(ctx, cfg.RedisAddr, cfg.RequestTimeout, l))
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedBackend, cfg.Backend)
	}
}

// checked keeps a typed nil out of the Transport interface.
func checked[T Transport](t T, err error) (Transport, error) {
	if err != nil {
		return nil, err
	}
	return t, nil
}

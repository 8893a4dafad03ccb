package transport

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/readersync/internal/client/config"
	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/logging"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	_, meta := newLocal(t)

	tr, err := New(ctx, &config.Config{Backend: config.BackendLocal}, meta, "dev", logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "local", tr.Name())

	tr, err = New(ctx, &config.Config{}, meta, "dev", logging.Nop())
	require.NoError(t, err)
	assert.False(t, tr.Remote())

	tr, err = New(ctx, &config.Config{Backend: config.BackendGRPC, GRPCAddr: "127.0.0.1:1"}, meta, "dev", logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "grpc", tr.Name())
	require.NoError(t, tr.Close())

	_, err = New(ctx, &config.Config{Backend: "carrier-pigeon"}, meta, "dev", logging.Nop())
	require.ErrorIs(t, err, common.ErrUnsupportedBackend)
}

func TestNew_FailedBackendIsNilInterface(t *testing.T) {
	orig := openPostgres
	t.Cleanup(func() { openPostgres = orig })
	openPostgres = func(ctx context.Context, dsn string) (*sql.DB, error) {
		return nil, errors.New("refused")
	}

	tr, err := New(context.Background(), &config.Config{Backend: config.BackendPostgres}, nil, "dev", logging.Nop())
	require.Error(t, err)
	assert.Nil(t, tr)
}

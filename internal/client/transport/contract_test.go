package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// runContract checks the behaviour every backend must share.
func runContract(t *testing.T, tr Transport) {
	t.Helper()
	ctx := context.Background()
	const code = "ABCDEF"

	ok, err := tr.GroupExists(ctx, code)
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := tr.FetchGroup(ctx, code)
	require.NoError(t, err)
	assert.Nil(t, snap.Envelope)
	assert.Empty(t, snap.Revision)
	assert.Equal(t, 1, snap.DeviceCount)

	require.NoError(t, tr.CreateGroup(ctx, code, "dev-a"))

	ok, err = tr.GroupExists(ctx, code)
	require.NoError(t, err)
	assert.True(t, ok)

	err = tr.CreateGroup(ctx, code, "dev-b")
	require.ErrorIs(t, err, common.ErrGroupExists)
	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, tr.Name(), terr.Backend)
	assert.Equal(t, "create", terr.Op)

	snap, err = tr.FetchGroup(ctx, code)
	require.NoError(t, err)
	assert.Nil(t, snap.Envelope, "a new group has no data yet")
	require.NotEmpty(t, snap.Revision)
	r0 := snap.Revision

	env := models.NewEnvelope(code, "dev-a", 1000, models.Dataset{
		Books: []models.Book{{ID: "b1", Title: "Dune", Progress: 12}},
	})

	_, err = tr.PutGroup(ctx, code, env, "")
	require.ErrorIs(t, err, common.ErrRevisionConflict, "creating an existing group")

	res, err := tr.PutGroup(ctx, code, env, r0)
	require.NoError(t, err)
	assert.NotEqual(t, r0, res.Revision)
	assert.Equal(t, 1, res.DeviceCount)
	r1 := res.Revision

	_, err = tr.PutGroup(ctx, code, env, r0)
	require.ErrorIs(t, err, common.ErrRevisionConflict, "stale revision")

	snap, err = tr.FetchGroup(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, snap.Envelope)
	assert.Equal(t, r1, snap.Revision)
	assert.Equal(t, "dev-a", snap.Envelope.DeviceID)
	require.Len(t, snap.Envelope.Payload.Books, 1)
	assert.Equal(t, "Dune", snap.Envelope.Payload.Books[0].Title)

	envB := models.NewEnvelope(code, "dev-b", 2000, snap.Envelope.Payload)
	res, err = tr.PutGroup(ctx, code, envB, r1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeviceCount)

	snap, err = tr.FetchGroup(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.DeviceCount)

	// pushing to a code nobody created yet creates it
	const fresh = "HJKLMN"
	res, err = tr.PutGroup(ctx, fresh, models.NewEnvelope(fresh, "dev-a", 3000, models.Dataset{}), "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Revision)

	snap, err = tr.FetchGroup(ctx, fresh)
	require.NoError(t, err)
	require.NotNil(t, snap.Envelope)
	assert.Equal(t, res.Revision, snap.Revision)
}

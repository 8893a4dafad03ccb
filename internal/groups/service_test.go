package groups

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
)

func newTestService() (*Service, *InMemoryRepository) {
	repo := NewInMemoryRepository()
	s := NewService(repo, logging.Nop())
	var clock int64 = 1000
	var mu sync.Mutex
	s.now = func() int64 {
		mu.Lock()
		defer mu.Unlock()
		clock++
		return clock
	}
	return s, repo
}

func envelope(device string, books ...models.Book) *models.Envelope {
	return models.NewEnvelope("ABC234", device, 1, models.Dataset{Books: books})
}

func TestServiceFetch_MissingGroupIsEmpty(t *testing.T) {
	s, _ := newTestService()
	snap, err := s.Fetch(context.Background(), "ABC234")
	require.NoError(t, err)
	assert.Nil(t, snap.Envelope)
	assert.Equal(t, "", snap.Revision)
	assert.Equal(t, 1, snap.DeviceCount)
}

func TestServiceCreatedGroupHasNoData(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	require.NoError(t, s.Create(ctx, "ABC234", "dev-1"))
	require.ErrorIs(t, s.Create(ctx, "ABC234", "dev-2"), common.ErrGroupExists)

	ok, err := s.Exists(ctx, "ABC234")
	require.NoError(t, err)
	assert.True(t, ok)

	snap, err := s.Fetch(ctx, "ABC234")
	require.NoError(t, err)
	assert.Nil(t, snap.Envelope)
	assert.Equal(t, "0", snap.Revision)
}

func TestServicePutAndFetch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	require.NoError(t, s.Create(ctx, "ABC234", "dev-1"))

	res, err := s.Put(ctx, "ABC234", envelope("dev-2", models.Book{ID: "b1", Progress: 10}), "0")
	require.NoError(t, err)
	assert.Equal(t, "1", res.Revision)
	assert.Equal(t, 2, res.DeviceCount)

	snap, err := s.Fetch(ctx, "ABC234")
	require.NoError(t, err)
	require.NotNil(t, snap.Envelope)
	assert.Equal(t, "dev-2", snap.Envelope.DeviceID)
	assert.Equal(t, "b1", snap.Envelope.Payload.Books[0].ID)
	assert.Equal(t, "1", snap.Revision)
}

func TestServicePut_StaleRevisionConflicts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	require.NoError(t, s.Create(ctx, "ABC234", "dev-1"))

	_, err := s.Put(ctx, "ABC234", envelope("dev-1"), "0")
	require.NoError(t, err)

	_, err = s.Put(ctx, "ABC234", envelope("dev-2"), "0")
	require.ErrorIs(t, err, common.ErrRevisionConflict)

	_, err = s.Put(ctx, "ABC234", envelope("dev-2"), "not-a-number")
	require.ErrorIs(t, err, common.ErrRevisionConflict)
}

func TestServicePut_EmptyRevisionCreates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	res, err := s.Put(ctx, "ABC234", envelope("dev-1"), "")
	require.NoError(t, err)
	assert.Equal(t, "0", res.Revision)

	_, err = s.Put(ctx, "ABC234", envelope("dev-2"), "")
	require.ErrorIs(t, err, common.ErrRevisionConflict)
}

func TestServiceFetch_MalformedEnvelopeIsNoData(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService()
	rec := models.NewGroupRecord("ABC234", "dev-1", 1)
	rec.Data = []byte(`{"data":{}}`)
	require.NoError(t, repo.Create(ctx, rec))

	snap, err := s.Fetch(ctx, "ABC234")
	require.NoError(t, err)
	assert.Nil(t, snap.Envelope)
	assert.Equal(t, "0", snap.Revision)
}

func TestParseRevision(t *testing.T) {
	rev, ok, err := ParseRevision("")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, rev)

	rev, ok, err = ParseRevision(FormatRevision(42))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), rev)

	_, _, err = ParseRevision("-1")
	require.Error(t, err)
}

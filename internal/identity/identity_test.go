package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
)

type memRepo struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemRepo() *memRepo { return &memRepo{data: map[string][]byte{}} }

func (m *memRepo) Get(_ context.Context, k string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[k], nil
}

func (m *memRepo) Set(_ context.Context, k string, v []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[k] = v
	return nil
}

func (m *memRepo) Delete(_ context.Context, k string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, k)
	return nil
}

func (m *memRepo) List(context.Context) (map[string][]byte, error) {
	return m.ListPrefix(context.Background(), "")
}

func (m *memRepo) ListPrefix(_ context.Context, p string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]byte{}
	for k, v := range m.data {
		if strings.HasPrefix(k, p) {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memRepo) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
	return nil
}

func TestDeviceID_CreatedOnceAndPersisted(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()

	s := NewStore(repo, logging.Nop())
	id := s.DeviceID(ctx)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, s.DeviceID(ctx))
	assert.Equal(t, []byte(id), repo.data[common.DeviceIDKey])

	// a new store over the same repo sees the same id
	assert.Equal(t, id, NewStore(repo, logging.Nop()).DeviceID(ctx))
}

func TestDeviceID_StorageFailureStillReturnsID(t *testing.T) {
	ctx := context.Background()

	repo := newMemRepo()
	repo.getErr = errors.New("disk gone")
	s := NewStore(repo, logging.Nop())
	a := s.DeviceID(ctx)
	b := s.DeviceID(ctx)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b, "ephemeral ids are not cached")

	repo = newMemRepo()
	repo.setErr = errors.New("read only")
	s = NewStore(repo, logging.Nop())
	assert.NotEmpty(t, s.DeviceID(ctx))
}

func TestSyncCodeBinding(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemRepo(), logging.Nop())

	code, err := s.SyncCode(ctx)
	require.NoError(t, err)
	assert.Empty(t, code)

	require.ErrorIs(t, s.SetSyncCode(ctx, "AB01IO"), common.ErrInvalidSyncCode)

	require.NoError(t, s.SetSyncCode(ctx, "ABC234"))
	code, err = s.SyncCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ABC234", code)

	require.NoError(t, s.ClearSyncCode(ctx))
	code, err = s.SyncCode(ctx)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestStatusPersistence(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	s := NewStore(repo, logging.Nop())

	assert.Equal(t, models.PersistedStatus{DeviceCount: 1}, s.LoadStatus(ctx))

	require.NoError(t, s.SaveStatus(ctx, models.PersistedStatus{LastSyncedAt: 42, DeviceCount: 3}))
	assert.JSONEq(t, `{"lastSyncedAt":42,"deviceCount":3}`, string(repo.data[common.SyncStatusKey]))
	assert.Equal(t, models.PersistedStatus{LastSyncedAt: 42, DeviceCount: 3}, s.LoadStatus(ctx))
}

func TestLoadStatus_CorruptedIsIgnored(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	repo.data[common.SyncStatusKey] = []byte("{not json")

	s := NewStore(repo, logging.Nop())
	assert.Equal(t, models.PersistedStatus{DeviceCount: 1}, s.LoadStatus(ctx))
}

package syncer

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/readersync/internal/client/repositories/library"
	"github.com/dmitrijs2005/readersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/readersync/internal/client/store"
	"github.com/dmitrijs2005/readersync/internal/client/transport"
	"github.com/dmitrijs2005/readersync/internal/groups"
	"github.com/dmitrijs2005/readersync/internal/identity"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// fakeTransport serves a shared in-memory group store and lets tests count
// calls and interfere with pushes.
type fakeTransport struct {
	svc    *groups.Service
	remote bool

	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu        sync.Mutex
	beforePut func(code string)
	putErr    error
	fetchErr  error
	delay     time.Duration
}

func newFakeTransport(repo groups.Repository, remote bool) *fakeTransport {
	return &fakeTransport{svc: groups.NewService(repo, logging.Nop()), remote: remote}
}

func (f *fakeTransport) enter() func() {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeTransport) Name() string { return "fake" }
func (f *fakeTransport) Remote() bool { return f.remote }
func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) GroupExists(ctx context.Context, code string) (bool, error) {
	defer f.enter()()
	return f.svc.Exists(ctx, code)
}

func (f *fakeTransport) CreateGroup(ctx context.Context, code, deviceID string) error {
	defer f.enter()()
	return f.svc.Create(ctx, code, deviceID)
}

func (f *fakeTransport) FetchGroup(ctx context.Context, code string) (*transport.Snapshot, error) {
	defer f.enter()()
	f.mu.Lock()
	err := f.fetchErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.svc.Fetch(ctx, code)
}

func (f *fakeTransport) PutGroup(ctx context.Context, code string, env *models.Envelope, revision string) (*transport.PutResult, error) {
	defer f.enter()()
	f.mu.Lock()
	hook, err := f.beforePut, f.putErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(code)
	}
	return f.svc.Put(ctx, code, env, revision)
}

// device is one client: its own database, identity and sync service.
type device struct {
	svc *Service
	lib *library.Store
	id  *identity.Store
}

func newDevice(t *testing.T, tr transport.Transport) *device {
	t.Helper()
	ctx := context.Background()

	db, err := store.InitDatabase(ctx, filepath.Join(t.TempDir(), "reader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	lib := library.NewStore(db)
	id := identity.NewStore(metadata.NewSQLiteRepository(db), logging.Nop())
	svc := NewService(ctx, tr, lib, id, logging.Nop(), Options{MaxPushAttempts: 3, RetryInterval: time.Millisecond})
	return &device{svc: svc, lib: lib, id: id}
}

func (d *device) addBook(t *testing.T, b models.Book) {
	t.Helper()
	require.NoError(t, d.lib.SaveBook(context.Background(), b))
}

func (d *device) snapshot(t *testing.T) models.Dataset {
	t.Helper()
	s, err := d.lib.Snapshot(context.Background())
	require.NoError(t, err)
	return s
}

func codes(list ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := list[i%len(list)]
		i++
		return c, nil
	}
}

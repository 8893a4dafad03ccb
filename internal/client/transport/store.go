package transport

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/readersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/groups"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// StoreTransport talks to a groups.Service directly. It is the local
// fallback (groups kept in the device's own metadata table) and the
// postgres backend (groups in a shared database).
type StoreTransport struct {
	name    string
	remote  bool
	svc     *groups.Service
	timeout time.Duration
	db      *sql.DB
}

// NewLocal keeps groups in the device's metadata store.
func NewLocal(repo metadata.Repository, l logging.Logger) *StoreTransport {
	return &StoreTransport{
		name: "local",
		svc:  groups.NewService(groups.NewKVRepository(repo), l),
	}
}

// openPostgres is a seam for tests.
var openPostgres = groups.OpenPostgres

// NewPostgres connects to a shared PostgreSQL database, applying the group
// schema if needed.
func NewPostgres(ctx context.Context, dsn string, timeout time.Duration, l logging.Logger) (*StoreTransport, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	db, err := openPostgres(ctx, dsn)
	if err != nil {
		return nil, wrap("postgres", "connect", unavailable(err))
	}
	return newPostgres(db, timeout, l), nil
}

func newPostgres(db *sql.DB, timeout time.Duration, l logging.Logger) *StoreTransport {
	return &StoreTransport{
		name:    "postgres",
		remote:  true,
		svc:     groups.NewService(groups.NewPostgresRepository(db), l),
		timeout: timeout,
		db:      db,
	}
}

func (t *StoreTransport) Name() string { return t.name }
func (t *StoreTransport) Remote() bool { return t.remote }

func (t *StoreTransport) GroupExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	ok, err := t.svc.Exists(ctx, code)
	return ok, t.wrap("exists", err)
}

func (t *StoreTransport) CreateGroup(ctx context.Context, code, deviceID string) error {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	return t.wrap("create", t.svc.Create(ctx, code, deviceID))
}

func (t *StoreTransport) FetchGroup(ctx context.Context, code string) (*Snapshot, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	snap, err := t.svc.Fetch(ctx, code)
	if err != nil {
		return nil, t.wrap("fetch", err)
	}
	return snap, nil
}

func (t *StoreTransport) PutGroup(ctx context.Context, code string, env *models.Envelope, revision string) (*PutResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	res, err := t.svc.Put(ctx, code, env, revision)
	if err != nil {
		return nil, t.wrap("put", err)
	}
	return res, nil
}

func (t *StoreTransport) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

// wrap marks database failures other than the group sentinels as the
// backend being unavailable.
func (t *StoreTransport) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if t.remote && !isSentinel(err) {
		err = unavailable(err)
	}
	return wrap(t.name, op, err)
}

func isSentinel(err error) bool {
	return errors.Is(err, common.ErrGroupExists) ||
		errors.Is(err, common.ErrGroupNotFound) ||
		errors.Is(err, common.ErrRevisionConflict)
}

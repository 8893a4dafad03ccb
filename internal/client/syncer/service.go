// Package syncer runs the enable, join, disable and sync operations of a
// device against its transport.
//
// A sync pulls the group's envelope, merges it with the local library,
// pushes the result conditioned on the pulled revision and finally merges
// the changed entities into the library as it is at that moment. When
// another device pushes in between, the push is rejected with
// common.ErrRevisionConflict and the whole cycle is retried with
// exponential backoff.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrijs2005/readersync/internal/client/merge"
	"github.com/dmitrijs2005/readersync/internal/client/repositories/library"
	"github.com/dmitrijs2005/readersync/internal/client/transport"
	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/identity"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
	"github.com/dmitrijs2005/readersync/internal/timex"
)

// Library is the local data the service reads and reconciles.
type Library interface {
	Snapshot(ctx context.Context) (models.Dataset, error)
	Update(ctx context.Context, fn func(ctx context.Context, r library.Repository) error) error
}

// Identity is the device state the service persists.
type Identity interface {
	DeviceID(ctx context.Context) string
	SyncCode(ctx context.Context) (string, error)
	SetSyncCode(ctx context.Context, code string) error
	ClearSyncCode(ctx context.Context) error
	LoadStatus(ctx context.Context) models.PersistedStatus
	SaveStatus(ctx context.Context, st models.PersistedStatus) error
}

type Options struct {
	// MaxPushAttempts bounds pull-merge-push cycles per sync.
	MaxPushAttempts int
	// MaxCodeAttempts bounds code generation on Enable.
	MaxCodeAttempts int
	// RetryInterval is the first backoff delay after a conflict.
	RetryInterval time.Duration
}

func (o *Options) setDefaults() {
	if o.MaxPushAttempts <= 0 {
		o.MaxPushAttempts = 5
	}
	if o.MaxCodeAttempts <= 0 {
		o.MaxCodeAttempts = 10
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 200 * time.Millisecond
	}
}

type Service struct {
	// mu serializes Enable, Join, Disable and Sync.
	mu sync.Mutex

	tr      transport.Transport
	lib     Library
	id      Identity
	status  *StatusHandle
	logger  logging.Logger
	opts    Options
	now     func() int64
	newCode func() (string, error)
}

// NewService restores the persisted status and returns a ready service.
func NewService(ctx context.Context, tr transport.Transport, lib Library, id Identity, l logging.Logger, opts Options) *Service {
	opts.setDefaults()
	s := &Service{
		tr:      tr,
		lib:     lib,
		id:      id,
		logger:  l.With("module", "syncer", "backend", tr.Name()),
		opts:    opts,
		now:     timex.NowMillis,
		newCode: identity.GeneratePairingCode,
	}

	code, err := id.SyncCode(ctx)
	if err != nil {
		s.logger.Warn(ctx, "sync code unreadable, starting disabled", "error", err)
		code = ""
	}
	persisted := id.LoadStatus(ctx)
	s.status = NewStatusHandle(models.SyncStatus{
		Enabled:      code != "",
		SyncCode:     code,
		LastSyncedAt: persisted.LastSyncedAt,
		DeviceCount:  persisted.DeviceCount,
	})
	return s
}

// Status returns a copy of the current status.
func (s *Service) Status() models.SyncStatus {
	return s.status.Get()
}

// OnChange subscribes to status updates.
func (s *Service) OnChange(fn func(models.SyncStatus)) func() {
	return s.status.OnChange(fn)
}

// Remote reports whether the transport is shared with other devices.
func (s *Service) Remote() bool {
	return s.tr.Remote()
}

// Enable creates a new group owned by this device and binds to it. If the
// initial sync fails the device stays bound, and the code is returned
// together with the sync error.
func (s *Service) Enable(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.allocateCode(ctx, s.id.DeviceID(ctx))
	if err != nil {
		s.fail(err)
		return "", err
	}
	if err := s.bind(ctx, code); err != nil {
		s.fail(err)
		return "", err
	}
	s.logger.Info(ctx, "sync enabled", "code", code)

	if _, err := s.syncLocked(ctx); err != nil {
		return code, err
	}
	return code, nil
}

// allocateCode draws codes until one can be created on the transport.
func (s *Service) allocateCode(ctx context.Context, deviceID string) (string, error) {
	for i := 0; i < s.opts.MaxCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}

		exists, err := s.tr.GroupExists(ctx, code)
		if err != nil {
			return "", err
		}
		if exists {
			s.logger.Debug(ctx, "sync code taken, regenerating", "code", code)
			continue
		}

		err = s.tr.CreateGroup(ctx, code, deviceID)
		if errors.Is(err, common.ErrGroupExists) {
			s.logger.Debug(ctx, "sync code taken on create, regenerating", "code", code)
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", common.ErrCodeSpaceExhausted
}

// Join binds to an existing group and pulls its data. Malformed codes fail
// before any transport call. Local transports accept any well-formed code.
func (s *Service) Join(ctx context.Context, input string) error {
	code, err := identity.ParseCode(input)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tr.Remote() {
		exists, err := s.tr.GroupExists(ctx, code)
		if err != nil {
			s.fail(err)
			return err
		}
		if !exists {
			s.fail(common.ErrGroupNotFound)
			return common.ErrGroupNotFound
		}
	}

	if err := s.bind(ctx, code); err != nil {
		s.fail(err)
		return err
	}
	s.logger.Info(ctx, "joined sync group", "code", code)

	_, err = s.syncLocked(ctx)
	return err
}

// Disable forgets the group binding on this device only. The group and the
// other devices in it are not touched.
func (s *Service) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.id.ClearSyncCode(ctx); err != nil {
		s.fail(err)
		return err
	}
	if err := s.id.SaveStatus(ctx, models.PersistedStatus{DeviceCount: 1}); err != nil {
		s.logger.Warn(ctx, "failed to reset persisted status", "error", err)
	}
	s.status.Update(func(st *models.SyncStatus) {
		*st = models.SyncStatus{DeviceCount: 1}
	})
	s.logger.Info(ctx, "sync disabled")
	return nil
}

// bind persists code and resets the status for a fresh group.
func (s *Service) bind(ctx context.Context, code string) error {
	if err := s.id.SetSyncCode(ctx, code); err != nil {
		return err
	}
	if err := s.id.SaveStatus(ctx, models.PersistedStatus{DeviceCount: 1}); err != nil {
		s.logger.Warn(ctx, "failed to reset persisted status", "error", err)
	}
	s.status.Update(func(st *models.SyncStatus) {
		*st = models.SyncStatus{Enabled: true, SyncCode: code, DeviceCount: 1}
	})
	return nil
}

// Sync runs one pull-merge-push cycle and returns the merged dataset.
func (s *Service) Sync(ctx context.Context) (*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncLocked(ctx)
}

func (s *Service) syncLocked(ctx context.Context) (*models.Dataset, error) {
	code, err := s.id.SyncCode(ctx)
	if err != nil {
		err = fmt.Errorf("read sync code: %w", err)
		s.fail(err)
		return nil, err
	}
	if code == "" {
		return nil, common.ErrSyncNotEnabled
	}

	s.status.Update(func(st *models.SyncStatus) { st.IsSyncing = true })
	deviceID := s.id.DeviceID(ctx)

	var (
		before, merged models.Dataset
		res            *transport.PutResult
		attempt        int
		pulledAt       int64
	)

	op := func() error {
		attempt++
		var err error
		before, err = s.lib.Snapshot(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read library: %w", err))
		}

		snap, err := s.tr.FetchGroup(ctx, code)
		if err != nil {
			return backoff.Permanent(err)
		}

		now := s.now()
		pulledAt = now
		if snap.Envelope != nil {
			merged = merge.Merge(before, snap.Envelope.Payload, now)
		} else {
			merged = before
			merged.Normalize()
		}

		res, err = s.tr.PutGroup(ctx, code, models.NewEnvelope(code, deviceID, now, merged), snap.Revision)
		if errors.Is(err, common.ErrRevisionConflict) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Info(ctx, "group changed during sync, retrying", "attempt", attempt, "wait", wait)
	}

	if err := backoff.RetryNotify(op, s.backoff(ctx), notify); err != nil {
		s.logger.Error(ctx, "sync failed", "code", code, "attempts", attempt, "error", err)
		s.fail(err)
		return nil, err
	}

	changes, err := s.reconcile(ctx, library.Diff(before, merged), pulledAt)
	if err != nil {
		err = fmt.Errorf("reconcile library: %w", err)
		s.logger.Error(ctx, "sync failed", "code", code, "error", err)
		s.fail(err)
		return nil, err
	}

	now := s.now()
	persisted := models.PersistedStatus{LastSyncedAt: now, DeviceCount: res.DeviceCount}
	if err := s.id.SaveStatus(ctx, persisted); err != nil {
		s.logger.Warn(ctx, "failed to persist sync status", "error", err)
	}
	s.status.Update(func(st *models.SyncStatus) {
		st.Enabled = true
		st.SyncCode = code
		st.IsSyncing = false
		st.Error = ""
		st.LastSyncedAt = persisted.LastSyncedAt
		st.DeviceCount = persisted.DeviceCount
	})

	s.logger.Info(ctx, "sync finished", "code", code, "attempts", attempt,
		"upserts", changes.Upserts(), "deletes", len(changes.Deletes), "devices", res.DeviceCount)
	return &merged, nil
}

// reconcile writes the entities the sync changed back into the library.
// The library is re-read inside the write transaction and incoming rows are
// merged over it, so edits made while the sync was in flight survive.
func (s *Service) reconcile(ctx context.Context, incoming library.Changeset, now int64) (library.Changeset, error) {
	var applied library.Changeset
	if incoming.Empty() {
		return applied, nil
	}
	err := s.lib.Update(ctx, func(ctx context.Context, r library.Repository) error {
		current, err := r.Snapshot(ctx)
		if err != nil {
			return err
		}
		remote := models.Dataset{
			Books:      incoming.Books,
			Highlights: incoming.Highlights,
			Bookmarks:  incoming.Bookmarks,
			Vocabulary: incoming.Vocabulary,
		}
		applied = library.Diff(current, merge.Merge(current, remote, now))
		return library.ApplyTo(ctx, r, applied)
	})
	return applied, err
}

func (s *Service) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.opts.MaxPushAttempts-1)), ctx)
}

// fail records err in the status and clears the syncing flag.
func (s *Service) fail(err error) {
	s.status.Update(func(st *models.SyncStatus) {
		st.IsSyncing = false
		st.Error = err.Error()
	})
}

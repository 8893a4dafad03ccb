// Package identity manages who this device is: its anonymous device id,
// the pairing code it is bound to and the sync status that survives
// restarts. Everything is kept in the client metadata store.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/readersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
)

type Store struct {
	repo metadata.Repository
	log  logging.Logger

	mu       sync.Mutex
	deviceID string
}

func NewStore(repo metadata.Repository, log logging.Logger) *Store {
	return &Store{repo: repo, log: log.With("module", "identity")}
}

// DeviceID returns the persisted device id, creating one on first use.
// It never fails: when the store cannot be read or written a fresh id is
// returned for this call only and a warning is logged.
func (s *Store) DeviceID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deviceID != "" {
		return s.deviceID
	}

	v, err := s.repo.Get(ctx, common.DeviceIDKey)
	if err != nil {
		s.log.Warn(ctx, "device id unreadable, using ephemeral id", "error", err)
		return newDeviceID()
	}
	if len(v) > 0 {
		s.deviceID = string(v)
		return s.deviceID
	}

	id := newDeviceID()
	if err := s.repo.Set(ctx, common.DeviceIDKey, []byte(id)); err != nil {
		s.log.Warn(ctx, "device id not persisted, using ephemeral id", "error", err)
		return id
	}
	s.deviceID = id
	s.log.Info(ctx, "device id created", "device_id", id)
	return id
}

func newDeviceID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// The random source failed; a time-based id is still unique enough
		// for an anonymous device.
		if v1, err := uuid.NewUUID(); err == nil {
			return v1.String()
		}
		return uuid.Nil.String()
	}
	return id.String()
}

// SyncCode returns the bound pairing code or "" when sync is disabled.
func (s *Store) SyncCode(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, common.SyncCodeKey)
	if err != nil {
		return "", fmt.Errorf("read sync code: %w", err)
	}
	return string(v), nil
}

func (s *Store) SetSyncCode(ctx context.Context, code string) error {
	if err := ValidateCode(code); err != nil {
		return err
	}
	if err := s.repo.Set(ctx, common.SyncCodeKey, []byte(code)); err != nil {
		return fmt.Errorf("store sync code: %w", err)
	}
	return nil
}

func (s *Store) ClearSyncCode(ctx context.Context) error {
	if err := s.repo.Delete(ctx, common.SyncCodeKey); err != nil {
		return fmt.Errorf("clear sync code: %w", err)
	}
	return nil
}

// LoadStatus returns the persisted status. A missing or corrupted record
// yields the zero status with a device count of one.
func (s *Store) LoadStatus(ctx context.Context) models.PersistedStatus {
	st := models.PersistedStatus{DeviceCount: 1}

	v, err := s.repo.Get(ctx, common.SyncStatusKey)
	if err != nil {
		s.log.Warn(ctx, "sync status unreadable", "error", err)
		return st
	}
	if len(v) == 0 {
		return st
	}
	if err := json.Unmarshal(v, &st); err != nil {
		s.log.Warn(ctx, "sync status corrupted, ignoring", "error", err)
		return models.PersistedStatus{DeviceCount: 1}
	}
	if st.DeviceCount < 1 {
		st.DeviceCount = 1
	}
	return st
}

func (s *Store) SaveStatus(ctx context.Context, st models.PersistedStatus) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.repo.Set(ctx, common.SyncStatusKey, b); err != nil {
		return fmt.Errorf("store sync status: %w", err)
	}
	return nil
}

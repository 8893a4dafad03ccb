package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
	"github.com/dmitrijs2005/readersync/internal/timex"
)

// Snapshot is a group as seen by a puller. Envelope is nil when nothing
// usable has been pushed yet; Revision is "" when the group does not exist.
type Snapshot struct {
	Envelope    *models.Envelope
	Revision    string
	DeviceCount int
}

// PutResult describes the record after a successful push.
type PutResult struct {
	Revision    string
	DeviceCount int
}

type Service struct {
	repo   Repository
	logger logging.Logger
	now    func() int64
}

func NewService(repo Repository, l logging.Logger) *Service {
	return &Service{repo: repo, logger: l.With("module", "groups"), now: timex.NowMillis}
}

func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	return s.repo.Exists(ctx, code)
}

// Create registers a new, empty group owned by deviceID.
func (s *Service) Create(ctx context.Context, code, deviceID string) error {
	if err := s.repo.Create(ctx, models.NewGroupRecord(code, deviceID, s.now())); err != nil {
		return err
	}
	s.logger.Info(ctx, "group created", "code", code, "device_id", deviceID)
	return nil
}

// Fetch returns what a device should merge with. A missing group is not an
// error: it yields an empty snapshot. A stored envelope that cannot be
// decoded is logged and reported as no data.
func (s *Service) Fetch(ctx context.Context, code string) (*Snapshot, error) {
	rec, err := s.repo.Get(ctx, code)
	if errors.Is(err, common.ErrGroupNotFound) {
		return &Snapshot{DeviceCount: 1}, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Revision: FormatRevision(rec.Revision), DeviceCount: rec.DeviceCount()}
	if len(rec.Data) == 0 {
		return snap, nil
	}
	env, err := rec.Envelope()
	if err != nil {
		s.logger.Warn(ctx, "stored envelope unusable, treating as empty", "code", code, "error", err)
		return snap, nil
	}
	snap.Envelope = env
	return snap, nil
}

// Put replaces the group's envelope. revision must be the token from the
// Fetch the envelope was merged against; "" creates the group.
func (s *Service) Put(ctx context.Context, code string, env *models.Envelope, revision string) (*PutResult, error) {
	expected, exists, err := ParseRevision(revision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRevisionConflict, err)
	}

	data, err := env.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	now := s.now()

	if !exists {
		rec := models.NewGroupRecord(code, env.DeviceID, now)
		rec.Data = data
		rec.UpdatedAt = now
		if err := s.repo.Create(ctx, rec); err != nil {
			if errors.Is(err, common.ErrGroupExists) {
				return nil, common.ErrRevisionConflict
			}
			return nil, err
		}
		return &PutResult{Revision: FormatRevision(rec.Revision), DeviceCount: rec.DeviceCount()}, nil
	}

	rec, err := s.repo.Get(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrGroupNotFound) {
			return nil, common.ErrRevisionConflict
		}
		return nil, err
	}
	if rec.Revision != expected {
		return nil, common.ErrRevisionConflict
	}

	rec.Data = data
	rec.UpdatedAt = now
	rec.Touch(env.DeviceID, now)
	if err := s.repo.Update(ctx, rec, expected); err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "group updated", "code", code, "revision", rec.Revision, "devices", rec.DeviceCount())
	return &PutResult{Revision: FormatRevision(rec.Revision), DeviceCount: rec.DeviceCount()}, nil
}

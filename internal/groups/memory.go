package groups

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// InMemoryRepository keeps groups in process memory. The sync server uses
// it when no database is configured.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*models.GroupRecord
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*models.GroupRecord)}
}

func (r *InMemoryRepository) Exists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[code]
	return ok, nil
}

func (r *InMemoryRepository) Create(_ context.Context, rec *models.GroupRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.SyncCode]; ok {
		return common.ErrGroupExists
	}
	r.records[rec.SyncCode] = rec.Clone()
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, code string) (*models.GroupRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[code]
	if !ok {
		return nil, common.ErrGroupNotFound
	}
	return rec.Clone(), nil
}

func (r *InMemoryRepository) Update(_ context.Context, rec *models.GroupRecord, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.records[rec.SyncCode]
	if !ok || cur.Revision != expected {
		return common.ErrRevisionConflict
	}
	rec.Revision = expected + 1
	r.records[rec.SyncCode] = rec.Clone()
	return nil
}

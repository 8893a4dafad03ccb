package groups

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/readersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// KVRepository keeps each group as a JSON value under
// common.GroupKeyPrefix+code in a metadata store. It backs local mode,
// where only one process touches the store, so a mutex is enough to make
// the revision check atomic.
type KVRepository struct {
	mu   sync.Mutex
	repo metadata.Repository
}

func NewKVRepository(repo metadata.Repository) *KVRepository {
	return &KVRepository{repo: repo}
}

func groupKey(code string) string {
	return common.GroupKeyPrefix + code
}

func (r *KVRepository) Exists(ctx context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.repo.Get(ctx, groupKey(code))
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func (r *KVRepository) Create(ctx context.Context, rec *models.GroupRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.repo.Get(ctx, groupKey(rec.SyncCode))
	if err != nil {
		return err
	}
	if v != nil {
		return common.ErrGroupExists
	}
	return r.store(ctx, rec)
}

func (r *KVRepository) Get(ctx context.Context, code string) (*models.GroupRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx, code)
}

func (r *KVRepository) Update(ctx context.Context, rec *models.GroupRecord, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, err := r.load(ctx, rec.SyncCode)
	if err != nil {
		if err == common.ErrGroupNotFound {
			return common.ErrRevisionConflict
		}
		return err
	}
	if cur.Revision != expected {
		return common.ErrRevisionConflict
	}
	next := rec.Clone()
	next.Revision = expected + 1
	if err := r.store(ctx, next); err != nil {
		return err
	}
	rec.Revision = next.Revision
	return nil
}

// Codes lists the codes stored locally, sorted.
func (r *KVRepository) Codes(ctx context.Context) ([]string, error) {
	m, err := r.repo.ListPrefix(ctx, common.GroupKeyPrefix)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(m))
	for k := range m {
		codes = append(codes, strings.TrimPrefix(k, common.GroupKeyPrefix))
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *KVRepository) load(ctx context.Context, code string) (*models.GroupRecord, error) {
	v, err := r.repo.Get(ctx, groupKey(code))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, common.ErrGroupNotFound
	}
	var rec models.GroupRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		// a corrupted record is kept addressable so the next push can
		// replace it; its data is treated as absent
		return &models.GroupRecord{SyncCode: code, Revision: corruptedRevision(v)}, nil
	}
	return &rec, nil
}

// corruptedRevision salvages the revision of an unreadable record so a
// pusher holding the same token can overwrite it.
func corruptedRevision(v []byte) int64 {
	var partial struct {
		Revision int64 `json:"revision"`
	}
	_ = json.Unmarshal(v, &partial)
	return partial.Revision
}

func (r *KVRepository) store(ctx context.Context, rec *models.GroupRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode group: %w", err)
	}
	return r.repo.Set(ctx, groupKey(rec.SyncCode), b)
}

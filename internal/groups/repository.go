// Package groups stores pairing groups: one record per sync code holding
// the last pushed envelope, the devices that used it and a revision
// counter for optimistic concurrency.
//
// The same Service backs the local fallback (records in the client
// metadata table), the direct PostgreSQL transport and the sync server.
package groups

import (
	"context"

	"github.com/dmitrijs2005/readersync/internal/models"
)

// Repository persists group records.
//
// Create fails with common.ErrGroupExists when the code is taken.
// Get fails with common.ErrGroupNotFound for an unknown code.
// Update writes rec only if the stored revision equals expected, then sets
// rec.Revision to expected+1; otherwise it fails with
// common.ErrRevisionConflict.
type Repository interface {
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, rec *models.GroupRecord) error
	Get(ctx context.Context, code string) (*models.GroupRecord, error)
	Update(ctx context.Context, rec *models.GroupRecord, expected int64) error
}

package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/dbx"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// PostgresRepository stores groups in the reader_sync table over a
// dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, code string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reader_sync WHERE sync_code = $1)`, code).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Create inserts rec. A taken code leaves the row untouched and returns
// common.ErrGroupExists.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.GroupRecord) error {
	devices, err := json.Marshal(rec.Devices)
	if err != nil {
		return fmt.Errorf("encode devices: %w", err)
	}
	query := `
		INSERT INTO reader_sync (sync_code, owner_device_id, data, devices, revision, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sync_code) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.SyncCode, rec.OwnerDeviceID, nullJSON(rec.Data), devices, rec.Revision, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrGroupExists
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) Get(ctx context.Context, code string) (*models.GroupRecord, error) {
	query := `
		SELECT owner_device_id, data, devices, revision, created_at, updated_at
		FROM reader_sync WHERE sync_code = $1
	`
	rec := &models.GroupRecord{SyncCode: code}
	var data, devices []byte
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&rec.OwnerDeviceID, &data, &devices, &rec.Revision, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(data) > 0 {
		rec.Data = json.RawMessage(data)
	}
	if len(devices) > 0 {
		if err := json.Unmarshal(devices, &rec.Devices); err != nil {
			// device bookkeeping is advisory, a broken column only affects the count
			rec.Devices = nil
		}
	}
	return rec, nil
}

// Update performs the compare-and-swap on the revision column.
func (r *PostgresRepository) Update(ctx context.Context, rec *models.GroupRecord, expected int64) error {
	devices, err := json.Marshal(rec.Devices)
	if err != nil {
		return fmt.Errorf("encode devices: %w", err)
	}
	query := `
		UPDATE reader_sync
		SET data = $2, devices = $3, revision = revision + 1, updated_at = $4
		WHERE sync_code = $1 AND revision = $5;
	`
	res, err := r.db.ExecContext(ctx, query, rec.SyncCode, nullJSON(rec.Data), devices, rec.UpdatedAt, expected)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		rec.Revision = expected + 1
		return nil
	case 0:
		return common.ErrRevisionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

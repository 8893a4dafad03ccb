// Package library persists the reader's collections and preferences in the
// client database and computes the changes needed to move it from one
// dataset to another.
package library

import (
	"context"

	"github.com/dmitrijs2005/readersync/internal/models"
)

type Repository interface {
	Snapshot(ctx context.Context) (models.Dataset, error)

	SaveBook(ctx context.Context, b models.Book) error
	SaveHighlight(ctx context.Context, h models.Highlight) error
	SaveBookmark(ctx context.Context, b models.Bookmark) error
	SaveWord(ctx context.Context, w models.VocabularyWord) error
	Delete(ctx context.Context, kind models.EntityKind, id string) error

	SaveSettings(ctx context.Context, s models.ReaderSettings) error
	SaveTTSSettings(ctx context.Context, s models.TTSSettings) error

	Stats(ctx context.Context) (models.ReadingStats, error)
	SaveStats(ctx context.Context, s models.ReadingStats) error
}

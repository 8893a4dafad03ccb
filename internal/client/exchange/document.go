// Package exchange exports the reader's data to a versioned JSON backup and
// imports such backups back, either replacing local data or merging into
// it.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/readersync/internal/models"
)

const (
	// ExportVersion is written into every document this build produces.
	ExportVersion = 1

	AppVersion = "1.0.0"
)

// Document is the backup file format.
type Document struct {
	Version    int    `json:"version"`
	ExportedAt string `json:"exportedAt"`
	AppVersion string `json:"appVersion"`

	Books       []models.Book           `json:"books"`
	Highlights  []models.Highlight      `json:"highlights"`
	Bookmarks   []models.Bookmark       `json:"bookmarks"`
	Vocabulary  []models.VocabularyWord `json:"vocabulary"`
	Settings    models.ReaderSettings   `json:"settings"`
	TTSSettings models.TTSSettings      `json:"ttsSettings"`

	Stats models.ReadingStats `json:"stats"`
}

// Dataset returns the synced part of the document.
func (d *Document) Dataset() models.Dataset {
	ds := models.Dataset{
		Books:       d.Books,
		Highlights:  d.Highlights,
		Bookmarks:   d.Bookmarks,
		Vocabulary:  d.Vocabulary,
		Settings:    d.Settings,
		TTSSettings: d.TTSSettings,
	}
	ds.Normalize()
	return ds
}

// Source is where exports read from.
type Source interface {
	Snapshot(ctx context.Context) (models.Dataset, error)
	Stats(ctx context.Context) (models.ReadingStats, error)
}

// Export gathers everything from src into a document stamped with now.
func Export(ctx context.Context, src Source, now time.Time) (*Document, error) {
	ds, err := src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}
	stats, err := src.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	if stats.DailyStats == nil {
		stats.DailyStats = []models.DailyStats{}
	}
	ds.Normalize()

	return &Document{
		Version:     ExportVersion,
		ExportedAt:  now.UTC().Format("2006-01-02T15:04:05.000Z"),
		AppVersion:  AppVersion,
		Books:       ds.Books,
		Highlights:  ds.Highlights,
		Bookmarks:   ds.Bookmarks,
		Vocabulary:  ds.Vocabulary,
		Settings:    ds.Settings,
		TTSSettings: ds.TTSSettings,
		Stats:       stats,
	}, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Filename is the conventional backup file name for the day of now.
func Filename(now time.Time) string {
	return "onde-reader-backup-" + now.UTC().Format("2006-01-02") + ".json"
}

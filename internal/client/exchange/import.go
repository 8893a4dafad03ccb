package exchange

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dmitrijs2005/readersync/internal/client/repositories/library"
	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// Strategy decides how an import treats existing data.
type Strategy string

const (
	// Overwrite replaces collections, settings and stats with the backup.
	Overwrite Strategy = "overwrite"
	// Merge keeps local data and settings, adding what the backup has on
	// top.
	Merge Strategy = "merge"
)

// ParseStrategy accepts "overwrite" or "merge".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Overwrite:
		return Overwrite, nil
	case Merge:
		return Merge, nil
	default:
		return "", fmt.Errorf("unknown import strategy %q", s)
	}
}

// ImportSummary counts what an import changed.
type ImportSummary struct {
	BooksAdded      int  `json:"booksAdded"`
	BooksUpdated    int  `json:"booksUpdated"`
	HighlightsAdded int  `json:"highlightsAdded"`
	BookmarksAdded  int  `json:"bookmarksAdded"`
	VocabularyAdded int  `json:"vocabularyAdded"`
	SettingsUpdated bool `json:"settingsUpdated"`
	StatsUpdated    bool `json:"statsUpdated"`
}

// Changed reports whether the import touched the synced collections.
func (s ImportSummary) Changed() bool {
	return s.BooksAdded+s.BooksUpdated+s.HighlightsAdded+s.BookmarksAdded+s.VocabularyAdded > 0
}

// Target is where imports write. Update must run fn in one transaction.
type Target interface {
	Update(ctx context.Context, fn func(ctx context.Context, r library.Repository) error) error
}

// Import applies doc to target atomically.
func Import(ctx context.Context, target Target, doc *Document, strategy Strategy) (ImportSummary, error) {
	var summary ImportSummary
	err := target.Update(ctx, func(ctx context.Context, r library.Repository) error {
		var err error
		switch strategy {
		case Overwrite:
			summary, err = overwrite(ctx, r, doc)
		case Merge:
			summary, err = mergeInto(ctx, r, doc)
		default:
			err = fmt.Errorf("unknown import strategy %q", strategy)
		}
		return err
	})
	if err != nil {
		return ImportSummary{}, err
	}
	return summary, nil
}

// ImportFile validates and imports a backup file. Warnings are returned
// even when the import succeeds.
func ImportFile(ctx context.Context, target Target, path string, strategy Strategy) (ImportSummary, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ImportSummary{}, nil, err
	}
	res := Validate(raw)
	if !res.Valid {
		return ImportSummary{}, res.Warnings, fmt.Errorf("%w: %s", common.ErrInvalidExportFormat, strings.Join(res.Errors, "; "))
	}
	summary, err := Import(ctx, target, res.Document, strategy)
	return summary, res.Warnings, err
}

func overwrite(ctx context.Context, r library.Repository, doc *Document) (ImportSummary, error) {
	current, err := r.Snapshot(ctx)
	if err != nil {
		return ImportSummary{}, err
	}
	incoming := doc.Dataset()

	if err := library.ApplyTo(ctx, r, library.Diff(current, incoming)); err != nil {
		return ImportSummary{}, err
	}
	if err := r.SaveSettings(ctx, doc.Settings); err != nil {
		return ImportSummary{}, err
	}
	if err := r.SaveTTSSettings(ctx, doc.TTSSettings); err != nil {
		return ImportSummary{}, err
	}
	stats := doc.Stats
	if stats.DailyStats == nil {
		stats.DailyStats = []models.DailyStats{}
	}
	if err := r.SaveStats(ctx, stats); err != nil {
		return ImportSummary{}, err
	}

	return ImportSummary{
		BooksAdded:      len(doc.Books),
		HighlightsAdded: len(doc.Highlights),
		BookmarksAdded:  len(doc.Bookmarks),
		VocabularyAdded: len(doc.Vocabulary),
		SettingsUpdated: true,
		StatsUpdated:    true,
	}, nil
}

// mergeInto adds books that are new or further along, highlights and
// bookmarks with new ids and words not known in any letter case. Settings
// are left alone; stats take the larger values.
func mergeInto(ctx context.Context, r library.Repository, doc *Document) (ImportSummary, error) {
	var summary ImportSummary

	current, err := r.Snapshot(ctx)
	if err != nil {
		return summary, err
	}

	books := make(map[string]models.Book, len(current.Books))
	for _, b := range current.Books {
		books[b.ID] = b
	}
	for _, b := range doc.Books {
		existing, ok := books[b.ID]
		if ok && b.Progress <= existing.Progress {
			continue
		}
		if err := r.SaveBook(ctx, b); err != nil {
			return summary, err
		}
		books[b.ID] = b
		if ok {
			summary.BooksUpdated++
		} else {
			summary.BooksAdded++
		}
	}

	highlights := idSet(current.Highlights, func(h models.Highlight) string { return h.ID })
	for _, h := range doc.Highlights {
		if _, ok := highlights[h.ID]; ok {
			continue
		}
		if err := r.SaveHighlight(ctx, h); err != nil {
			return summary, err
		}
		highlights[h.ID] = struct{}{}
		summary.HighlightsAdded++
	}

	bookmarks := idSet(current.Bookmarks, func(b models.Bookmark) string { return b.ID })
	for _, b := range doc.Bookmarks {
		if _, ok := bookmarks[b.ID]; ok {
			continue
		}
		if err := r.SaveBookmark(ctx, b); err != nil {
			return summary, err
		}
		bookmarks[b.ID] = struct{}{}
		summary.BookmarksAdded++
	}

	words := idSet(current.Vocabulary, func(w models.VocabularyWord) string { return strings.ToLower(w.Word) })
	for _, w := range doc.Vocabulary {
		key := strings.ToLower(w.Word)
		if _, ok := words[key]; ok {
			continue
		}
		if err := r.SaveWord(ctx, w); err != nil {
			return summary, err
		}
		words[key] = struct{}{}
		summary.VocabularyAdded++
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		return summary, err
	}
	if err := r.SaveStats(ctx, MergeStats(stats, doc.Stats)); err != nil {
		return summary, err
	}
	summary.StatsUpdated = true
	return summary, nil
}

// MergeStats combines local and imported reading stats. Totals and the
// longest streak take the maximum, the current streak and last read date
// stay local, and daily entries are merged per date.
func MergeStats(local, imported models.ReadingStats) models.ReadingStats {
	return models.ReadingStats{
		TotalReadingTimeMs: max(local.TotalReadingTimeMs, imported.TotalReadingTimeMs),
		TotalPagesRead:     max(local.TotalPagesRead, imported.TotalPagesRead),
		TotalSessions:      max(local.TotalSessions, imported.TotalSessions),
		BooksCompleted:     max(local.BooksCompleted, imported.BooksCompleted),
		LongestStreak:      max(local.LongestStreak, imported.LongestStreak),
		CurrentStreak:      local.CurrentStreak,
		LastReadDate:       local.LastReadDate,
		DailyStats:         mergeDailyStats(local.DailyStats, imported.DailyStats),
	}
}

func mergeDailyStats(local, imported []models.DailyStats) []models.DailyStats {
	byDate := make(map[string]models.DailyStats, len(local)+len(imported))
	for _, d := range local {
		byDate[d.Date] = d
	}
	for _, d := range imported {
		existing, ok := byDate[d.Date]
		if !ok {
			byDate[d.Date] = d
			continue
		}
		byDate[d.Date] = models.DailyStats{
			Date:          d.Date,
			ReadingTimeMs: max(existing.ReadingTimeMs, d.ReadingTimeMs),
			PagesRead:     max(existing.PagesRead, d.PagesRead),
			SessionsCount: max(existing.SessionsCount, d.SessionsCount),
		}
	}

	out := make([]models.DailyStats, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func idSet[T any](items []T, key func(T) string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[key(item)] = struct{}{}
	}
	return set
}

// IsInvalid reports whether err came from a backup that failed validation.
func IsInvalid(err error) bool {
	return errors.Is(err, common.ErrInvalidExportFormat)
}

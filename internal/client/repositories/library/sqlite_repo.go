package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/readersync/internal/dbx"
	"github.com/dmitrijs2005/readersync/internal/models"
)

const (
	prefReader = "reader"
	prefTTS    = "tts"
	prefStats  = "stats"
)

// SQLiteRepository works over a *sql.DB or an open *sql.Tx.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Snapshot reads the whole dataset. Collections are ordered by id and
// missing preferences come back as defaults.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (models.Dataset, error) {
	var d models.Dataset
	var err error

	if d.Books, err = r.books(ctx); err != nil {
		return d, err
	}
	if d.Highlights, err = r.highlights(ctx); err != nil {
		return d, err
	}
	if d.Bookmarks, err = r.bookmarks(ctx); err != nil {
		return d, err
	}
	if d.Vocabulary, err = r.vocabulary(ctx); err != nil {
		return d, err
	}

	d.Settings = models.DefaultReaderSettings()
	if err := r.pref(ctx, prefReader, &d.Settings); err != nil {
		return d, err
	}
	d.TTSSettings = models.DefaultTTSSettings()
	if err := r.pref(ctx, prefTTS, &d.TTSSettings); err != nil {
		return d, err
	}

	d.Normalize()
	return d, nil
}

func (r *SQLiteRepository) books(ctx context.Context) ([]models.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, author, cover, progress, current_location, current_cfi, last_read, added_at
		FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select books: %w", err)
	}
	defer rows.Close()

	var result []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Cover, &b.Progress,
			&b.CurrentLocation, &b.CurrentCfi, &b.LastRead, &b.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) highlights(ctx context.Context) ([]models.Highlight, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, cfi, text, color, note, created_at FROM highlights ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select highlights: %w", err)
	}
	defer rows.Close()

	var result []models.Highlight
	for rows.Next() {
		var h models.Highlight
		if err := rows.Scan(&h.ID, &h.BookID, &h.Cfi, &h.Text, &h.Color, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan highlight: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) bookmarks(ctx context.Context) ([]models.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, cfi, title, created_at FROM bookmarks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select bookmarks: %w", err)
	}
	defer rows.Close()

	var result []models.Bookmark
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(&b.ID, &b.BookID, &b.Cfi, &b.Title, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) vocabulary(ctx context.Context) ([]models.VocabularyWord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, word, definition, book_id, created_at FROM vocabulary ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select vocabulary: %w", err)
	}
	defer rows.Close()

	var result []models.VocabularyWord
	for rows.Next() {
		var w models.VocabularyWord
		if err := rows.Scan(&w.ID, &w.Word, &w.Definition, &w.BookID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) SaveBook(ctx context.Context, b models.Book) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, cover, progress, current_location, current_cfi, last_read, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			cover = excluded.cover,
			progress = excluded.progress,
			current_location = excluded.current_location,
			current_cfi = excluded.current_cfi,
			last_read = excluded.last_read,
			added_at = excluded.added_at
	`, b.ID, b.Title, b.Author, b.Cover, b.Progress, b.CurrentLocation, b.CurrentCfi, b.LastRead, b.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to save book[%s]: %w", b.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) SaveHighlight(ctx context.Context, h models.Highlight) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO highlights (id, book_id, cfi, text, color, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			book_id = excluded.book_id,
			cfi = excluded.cfi,
			text = excluded.text,
			color = excluded.color,
			note = excluded.note,
			created_at = excluded.created_at
	`, h.ID, h.BookID, h.Cfi, h.Text, h.Color, h.Note, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save highlight[%s]: %w", h.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) SaveBookmark(ctx context.Context, b models.Bookmark) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, book_id, cfi, title, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			book_id = excluded.book_id,
			cfi = excluded.cfi,
			title = excluded.title,
			created_at = excluded.created_at
	`, b.ID, b.BookID, b.Cfi, b.Title, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save bookmark[%s]: %w", b.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) SaveWord(ctx context.Context, w models.VocabularyWord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vocabulary (id, word, definition, book_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			word = excluded.word,
			definition = excluded.definition,
			book_id = excluded.book_id,
			created_at = excluded.created_at
	`, w.ID, w.Word, w.Definition, w.BookID, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save word[%s]: %w", w.ID, err)
	}
	return nil
}

var tables = map[models.EntityKind]string{
	models.KindBook:      "books",
	models.KindHighlight: "highlights",
	models.KindBookmark:  "bookmarks",
	models.KindWord:      "vocabulary",
}

// Delete removes one entity. Deleting a missing id is not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, kind models.EntityKind, id string) error {
	table, ok := tables[kind]
	if !ok {
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", kind, id, err)
	}
	return nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s models.ReaderSettings) error {
	return r.setPref(ctx, prefReader, s)
}

func (r *SQLiteRepository) SaveTTSSettings(ctx context.Context, s models.TTSSettings) error {
	return r.setPref(ctx, prefTTS, s)
}

func (r *SQLiteRepository) Stats(ctx context.Context) (models.ReadingStats, error) {
	s := models.ReadingStats{DailyStats: []models.DailyStats{}}
	err := r.pref(ctx, prefStats, &s)
	if s.DailyStats == nil {
		s.DailyStats = []models.DailyStats{}
	}
	return s, err
}

func (r *SQLiteRepository) SaveStats(ctx context.Context, s models.ReadingStats) error {
	return r.setPref(ctx, prefStats, s)
}

// pref decodes the stored value into v. An absent key leaves v untouched;
// a corrupted value is ignored.
func (r *SQLiteRepository) pref(ctx context.Context, key string, v any) error {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get preference[%s]: %w", key, err)
	}
	_ = json.Unmarshal([]byte(raw), v)
	return nil
}

func (r *SQLiteRepository) setPref(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(b))
	if err != nil {
		return fmt.Errorf("failed to set preference[%s]: %w", key, err)
	}
	return nil
}

package library

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/readersync/internal/dbx"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// Deletion names one entity to remove.
type Deletion struct {
	Kind models.EntityKind
	ID   string
}

// Changeset is the set of writes that turns one dataset into another.
// Preferences are never part of it.
type Changeset struct {
	Books      []models.Book
	Highlights []models.Highlight
	Bookmarks  []models.Bookmark
	Vocabulary []models.VocabularyWord
	Deletes    []Deletion
}

func (c Changeset) Empty() bool {
	return len(c.Books) == 0 && len(c.Highlights) == 0 && len(c.Bookmarks) == 0 &&
		len(c.Vocabulary) == 0 && len(c.Deletes) == 0
}

// Upserts counts the entities written by the changeset.
func (c Changeset) Upserts() int {
	return len(c.Books) + len(c.Highlights) + len(c.Bookmarks) + len(c.Vocabulary)
}

// Diff computes the changes from before to after: entities that are new or
// differ are upserted, entities only in before are deleted.
func Diff(before, after models.Dataset) Changeset {
	var c Changeset
	c.Books, c.Deletes = diff(before.Books, after.Books, func(b models.Book) string { return b.ID }, models.KindBook, c.Deletes)
	c.Highlights, c.Deletes = diff(before.Highlights, after.Highlights, func(h models.Highlight) string { return h.ID }, models.KindHighlight, c.Deletes)
	c.Bookmarks, c.Deletes = diff(before.Bookmarks, after.Bookmarks, func(b models.Bookmark) string { return b.ID }, models.KindBookmark, c.Deletes)
	c.Vocabulary, c.Deletes = diff(before.Vocabulary, after.Vocabulary, func(w models.VocabularyWord) string { return w.ID }, models.KindWord, c.Deletes)
	return c
}

func diff[T comparable](before, after []T, id func(T) string, kind models.EntityKind, deletes []Deletion) ([]T, []Deletion) {
	old := make(map[string]T, len(before))
	for _, item := range before {
		old[id(item)] = item
	}

	var upserts []T
	seen := make(map[string]struct{}, len(after))
	for _, item := range after {
		key := id(item)
		seen[key] = struct{}{}
		if prev, ok := old[key]; ok && prev == item {
			continue
		}
		upserts = append(upserts, item)
	}

	for _, item := range before {
		if _, ok := seen[id(item)]; !ok {
			deletes = append(deletes, Deletion{Kind: kind, ID: id(item)})
		}
	}
	return upserts, deletes
}

// Store is the SQLite repository plus transactional application of
// changesets.
type Store struct {
	*SQLiteRepository
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{SQLiteRepository: NewSQLiteRepository(db), db: db}
}

// Apply writes the whole changeset in one transaction.
func (s *Store) Apply(ctx context.Context, c Changeset) error {
	if c.Empty() {
		return nil
	}
	return s.Update(ctx, func(ctx context.Context, r Repository) error {
		return ApplyTo(ctx, r, c)
	})
}

// Update runs fn against a repository bound to a single transaction,
// committing only if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewSQLiteRepository(tx))
	})
}

// ApplyTo writes c through r without starting a transaction.
func ApplyTo(ctx context.Context, r Repository, c Changeset) error {
	for _, d := range c.Deletes {
		if err := r.Delete(ctx, d.Kind, d.ID); err != nil {
			return err
		}
	}
	for _, b := range c.Books {
		if err := r.SaveBook(ctx, b); err != nil {
			return err
		}
	}
	for _, h := range c.Highlights {
		if err := r.SaveHighlight(ctx, h); err != nil {
			return err
		}
	}
	for _, b := range c.Bookmarks {
		if err := r.SaveBookmark(ctx, b); err != nil {
			return err
		}
	}
	for _, w := range c.Vocabulary {
		if err := r.SaveWord(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

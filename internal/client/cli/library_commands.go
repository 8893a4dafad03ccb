package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/readersync/internal/client/repositories/library"
	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/models"
)

var errUsage = errors.New("usage")

func (a *App) usage(text string) error {
	fmt.Fprintln(a.out, "Usage:", text)
	return errUsage
}

func (a *App) millis() int64 {
	return a.now().UnixMilli()
}

// edit runs fn in one transaction and schedules a sync when it succeeds.
func (a *App) edit(ctx context.Context, fn func(ctx context.Context, r library.Repository) error) error {
	if err := a.lib.Update(ctx, fn); err != nil {
		return a.fail(err)
	}
	a.changed()
	return nil
}

// Books lists the library.
func (a *App) Books(ctx context.Context, _ []string) error {
	ds, err := a.lib.Snapshot(ctx)
	if err != nil {
		return a.fail(err)
	}
	if len(ds.Books) == 0 {
		fmt.Fprintln(a.out, "No books yet. Add one with add-book.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tPROGRESS")
	for _, b := range ds.Books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\n", b.ID, b.Title, b.Author, strconv.FormatFloat(b.Progress, 'f', -1, 64))
	}
	return w.Flush()
}

// AddBook adds a book from title=.. author=.. [cover=..] arguments, or
// prompts for them.
func (a *App) AddBook(ctx context.Context, args []string) error {
	if len(args) == 0 {
		var err error
		args, err = GetMetadata(a.reader, a.out)
		if err != nil {
			return a.fail(err)
		}
	}
	fields, err := models.FieldMap(args)
	if err != nil {
		return a.fail(err)
	}
	if fields["title"] == "" {
		return a.usage("add-book title=<title> author=<author> [cover=<url>]")
	}

	book := models.Book{
		ID:      a.newID(),
		Title:   fields["title"],
		Author:  fields["author"],
		Cover:   fields["cover"],
		AddedAt: a.millis(),
	}
	if err := a.edit(ctx, func(ctx context.Context, r library.Repository) error {
		return r.SaveBook(ctx, book)
	}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %q as %s\n", book.Title, book.ID)
	return nil
}

// Progress records how far the user has read.
func (a *App) Progress(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("progress <book> <percent> [cfi]")
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64)
	if err != nil || percent < 0 || percent > 100 {
		return a.fail(fmt.Errorf("progress must be a number between 0 and 100, got %q", args[1]))
	}

	return a.edit(ctx, func(ctx context.Context, r library.Repository) error {
		book, err := findBook(ctx, r, args[0])
		if err != nil {
			return err
		}
		book.Progress = percent
		book.LastRead = a.millis()
		if len(args) > 2 {
			book.CurrentCfi = args[2]
		}
		return r.SaveBook(ctx, book)
	})
}

// Highlight marks a passage. The text is read from the following lines.
func (a *App) Highlight(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("highlight <book> <cfi>")
	}
	text, err := GetMultiline(a.reader, "Enter highlighted text", a.out)
	if err != nil {
		return a.fail(err)
	}
	if text == "" {
		return a.fail(errors.New("highlight text is empty"))
	}

	h := models.Highlight{ID: a.newID(), BookID: args[0], Cfi: args[1], Text: text, Color: "yellow", CreatedAt: a.millis()}
	return a.edit(ctx, func(ctx context.Context, r library.Repository) error {
		if _, err := findBook(ctx, r, h.BookID); err != nil {
			return err
		}
		return r.SaveHighlight(ctx, h)
	})
}

func (a *App) Bookmark(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("bookmark <book> <cfi> [title]")
	}
	bm := models.Bookmark{ID: a.newID(), BookID: args[0], Cfi: args[1], Title: strings.Join(args[2:], " "), CreatedAt: a.millis()}
	return a.edit(ctx, func(ctx context.Context, r library.Repository) error {
		if _, err := findBook(ctx, r, bm.BookID); err != nil {
			return err
		}
		return r.SaveBookmark(ctx, bm)
	})
}

func (a *App) Word(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("word <word> [definition]")
	}
	definition := strings.Join(args[1:], " ")
	if definition == "" {
		var err error
		definition, err = GetSimpleText(a.reader, "Enter definition", a.out)
		if err != nil {
			return a.fail(err)
		}
	}
	w := models.VocabularyWord{ID: a.newID(), Word: args[0], Definition: definition, CreatedAt: a.millis()}
	return a.edit(ctx, func(ctx context.Context, r library.Repository) error {
		return r.SaveWord(ctx, w)
	})
}

// Delete removes one entity locally.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("delete <book|highlight|bookmark|vocabulary> <id>")
	}
	kind := models.EntityKind(args[0])
	return a.edit(ctx, func(ctx context.Context, r library.Repository) error {
		return r.Delete(ctx, kind, args[1])
	})
}

func findBook(ctx context.Context, r library.Repository, id string) (models.Book, error) {
	ds, err := r.Snapshot(ctx)
	if err != nil {
		return models.Book{}, err
	}
	for _, b := range ds.Books {
		if b.ID == id {
			return b, nil
		}
	}
	return models.Book{}, fmt.Errorf("book %s: %w", id, common.ErrorNotFound)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/readersync/internal/client/exchange"
	"github.com/dmitrijs2005/readersync/internal/common"
)

// Export writes a backup to args[0] or to the dated default file name.
func (a *App) Export(ctx context.Context, args []string) error {
	now := a.now()
	path := exchange.Filename(now)
	if len(args) > 0 {
		path = args[0]
	}

	doc, err := exchange.Export(ctx, a.lib, now)
	if err != nil {
		return a.fail(err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return a.fail(err)
	}
	if err := exchange.Encode(f, doc); err != nil {
		_ = f.Close()
		return a.fail(err)
	}
	if err := f.Close(); err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "Exported %d books, %d highlights, %d bookmarks, %d words to %s\n",
		len(doc.Books), len(doc.Highlights), len(doc.Bookmarks), len(doc.Vocabulary), path)
	return nil
}

// Import restores a backup. The default strategy is merge; overwrite asks
// for confirmation first.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("import <path> [merge|overwrite]")
	}
	strategy := exchange.Merge
	if len(args) > 1 {
		var err error
		if strategy, err = exchange.ParseStrategy(args[1]); err != nil {
			return a.fail(err)
		}
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return a.fail(err)
	}
	res := exchange.Validate(raw)
	for _, w := range res.Warnings {
		fmt.Fprintln(a.out, warnColor.Sprint("warning: "+w))
	}
	if !res.Valid {
		for _, e := range res.Errors {
			fmt.Fprintln(a.out, errColor.Sprint("  "+e))
		}
		return a.fail(fmt.Errorf("%w: %s", common.ErrInvalidExportFormat, strings.Join(res.Errors, "; ")))
	}

	if strategy == exchange.Overwrite && !Confirm(a.reader, "Replace all local data with this backup?", a.out) {
		fmt.Fprintln(a.out, "Import cancelled.")
		return nil
	}

	summary, err := exchange.Import(ctx, a.lib, res.Document, strategy)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprint(a.out, formatSummary(summary))

	if summary.Changed() || strategy == exchange.Overwrite {
		a.changed()
	}
	return nil
}

func formatSummary(s exchange.ImportSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Books:      %d added, %d updated\n", s.BooksAdded, s.BooksUpdated)
	fmt.Fprintf(&b, "Highlights: %d added\n", s.HighlightsAdded)
	fmt.Fprintf(&b, "Bookmarks:  %d added\n", s.BookmarksAdded)
	fmt.Fprintf(&b, "Vocabulary: %d added\n", s.VocabularyAdded)
	if s.SettingsUpdated {
		fmt.Fprintln(&b, "Settings replaced")
	}
	if s.StatsUpdated {
		fmt.Fprintln(&b, "Reading stats updated")
	}
	return b.String()
}

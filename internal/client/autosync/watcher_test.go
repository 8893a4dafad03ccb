package autosync

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/readersync/internal/client/exchange"
	"github.com/dmitrijs2005/readersync/internal/client/repositories/library"
	"github.com/dmitrijs2005/readersync/internal/client/store"
	"github.com/dmitrijs2005/readersync/internal/models"
)

type fakeNotifier struct{ n atomic.Int32 }

func (f *fakeNotifier) Notify() { f.n.Add(1) }

type importResult struct {
	path    string
	summary exchange.ImportSummary
	err     error
}

func startWatcher(t *testing.T) (*ImportWatcher, *library.Store, *fakeNotifier, func() []importResult) {
	t.Helper()
	ctx := context.Background()

	db, err := store.InitDatabase(ctx, filepath.Join(t.TempDir(), "reader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	lib := library.NewStore(db)

	n := &fakeNotifier{}
	w, err := NewImportWatcher(filepath.Join(t.TempDir(), "inbox"), lib, n, nil)
	require.NoError(t, err)
	w.settle = 100 * time.Millisecond

	var mu sync.Mutex
	var results []importResult
	w.imported = func(path string, s exchange.ImportSummary, err error) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, importResult{path, s, err})
	}

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	return w, lib, n, func() []importResult {
		mu.Lock()
		defer mu.Unlock()
		return append([]importResult(nil), results...)
	}
}

// drop writes data under a temporary name and renames it into the inbox so
// the watcher never sees a half-written file.
func drop(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	tmp := filepath.Join(dir, name+".part")
	require.NoError(t, os.WriteFile(tmp, data, 0o600))
	dst := filepath.Join(dir, name)
	require.NoError(t, os.Rename(tmp, dst))
	return dst
}

func backup(t *testing.T, books ...models.Book) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, exchange.Encode(&buf, &exchange.Document{
		Version:     exchange.ExportVersion,
		ExportedAt:  "2026-03-02T10:00:00.000Z",
		AppVersion:  exchange.AppVersion,
		Books:       books,
		Highlights:  []models.Highlight{},
		Bookmarks:   []models.Bookmark{},
		Vocabulary:  []models.VocabularyWord{},
		Settings:    models.DefaultReaderSettings(),
		TTSSettings: models.DefaultTTSSettings(),
		Stats:       models.ReadingStats{DailyStats: []models.DailyStats{}},
	}))
	return buf.Bytes()
}

func TestImportWatcher_ImportsDroppedBackup(t *testing.T) {
	w, lib, n, results := startWatcher(t)

	path := drop(t, w.dir, "backup.json", backup(t, models.Book{ID: "b1", Title: "Dune", Author: "Herbert", Progress: 12}))

	require.Eventually(t, func() bool {
		for _, r := range results() {
			if r.path == path && r.err == nil && r.summary.BooksAdded == 1 {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	got, err := lib.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "Dune", got.Books[0].Title)
	assert.GreaterOrEqual(t, n.n.Load(), int32(1))
}

func TestImportWatcher_InvalidBackupDoesNotNotify(t *testing.T) {
	w, _, n, results := startWatcher(t)

	drop(t, w.dir, "broken.json", []byte(`{"version": 1}`))

	require.Eventually(t, func() bool { return len(results()) > 0 }, 2*time.Second, 10*time.Millisecond)
	for _, r := range results() {
		require.True(t, exchange.IsInvalid(r.err))
	}
	assert.Zero(t, n.n.Load())
}

func TestImportWatcher_SlowWriteImportsOnce(t *testing.T) {
	w, lib, _, results := startWatcher(t)

	data := backup(t, models.Book{ID: "b1", Title: "Dune", Author: "Herbert"})
	path := filepath.Join(w.dir, "slow.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	half := len(data) / 2
	_, err = f.Write(data[:half])
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = f.Write(data[half:])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return len(results()) > 0 }, 2*time.Second, 10*time.Millisecond)
	// anything still pending would land well within a few settle periods
	time.Sleep(3 * w.settle)

	got := results()
	require.Len(t, got, 1)
	require.NoError(t, got[0].err)
	assert.Equal(t, 1, got[0].summary.BooksAdded)

	snap, err := lib.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Books, 1)
}

func TestImportWatcher_StartTwice(t *testing.T) {
	w, _, _, _ := startWatcher(t)
	require.ErrorContains(t, w.Start(context.Background()), "already running")
}

func TestIsImportable(t *testing.T) {
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/in/a.json", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/in/a.JSON", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/in/a.json", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "/in/a.json", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/in/a.json.part", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/in/notes.txt", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isImportable(tt.ev), tt.ev.String())
	}
}

package autosync

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrijs2005/readersync/internal/client/exchange"
	"github.com/dmitrijs2005/readersync/internal/filex"
	"github.com/dmitrijs2005/readersync/internal/logging"
)

// Notifier is what the watcher pokes after a successful import.
type Notifier interface {
	Notify()
}

// ImportWatcher imports backup files that appear in an inbox directory
// using the merge strategy. Imports that change the library notify the
// trigger so the change propagates to other devices.
//
// A file is imported once it has been quiet for the settle period, so the
// Create and Write events of one copy collapse into a single import of the
// complete file.
type ImportWatcher struct {
	dir     string
	target  exchange.Target
	notify  Notifier
	logger  logging.Logger
	watcher *fsnotify.Watcher
	settle  time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	// owned by the loop goroutine
	pending map[string]*pendingImport
	seq     uint64
	ready   chan settled

	// imported is called after each import attempt. Tests hook it.
	imported func(path string, summary exchange.ImportSummary, err error)
}

const importSettle = 250 * time.Millisecond

type pendingImport struct {
	timer *time.Timer
	seq   uint64
}

type settled struct {
	path string
	seq  uint64
}

// NewImportWatcher creates the inbox directory if needed. The watcher does
// nothing until Start.
func NewImportWatcher(dir string, target exchange.Target, n Notifier, l logging.Logger) (*ImportWatcher, error) {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create import dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if l == nil {
		l = logging.Nop()
	}
	return &ImportWatcher{
		dir:     dir,
		target:  target,
		notify:  n,
		logger:  l.With("module", "import-watcher"),
		watcher: w,
		settle:  importSettle,
		done:    make(chan struct{}),
		pending: make(map[string]*pendingImport),
		ready:   make(chan settled),
	}, nil
}

// Start begins watching. Events are processed until Stop or ctx is done.
func (w *ImportWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch import dir %s: %w", w.dir, err)
	}
	w.running = true
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop closes the watcher and waits for the event loop to exit.
func (w *ImportWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *ImportWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		for path, p := range w.pending {
			p.timer.Stop()
			delete(w.pending, path)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isImportable(ev) {
				continue
			}
			w.schedule(ctx, ev.Name)
		case s := <-w.ready:
			p, ok := w.pending[s.path]
			if !ok || p.seq != s.seq {
				continue
			}
			delete(w.pending, s.path)
			w.importFile(ctx, s.path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "import watcher error", "error", err)
		}
	}
}

// schedule (re)starts the settle timer for path. A timer that already fired
// but lost the race with a newer event is ignored by its sequence number.
func (w *ImportWatcher) schedule(ctx context.Context, path string) {
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}
	w.seq++
	s := settled{path: path, seq: w.seq}
	w.pending[path] = &pendingImport{
		seq: s.seq,
		timer: time.AfterFunc(w.settle, func() {
			select {
			case w.ready <- s:
			case <-w.done:
			case <-ctx.Done():
			}
		}),
	}
}

func (w *ImportWatcher) importFile(ctx context.Context, path string) {
	summary, warnings, err := exchange.ImportFile(ctx, w.target, path, exchange.Merge)
	if w.imported != nil {
		defer w.imported(path, summary, err)
	}
	if err != nil {
		w.logger.Warn(ctx, "import failed", "file", path, "error", err)
		return
	}
	for _, warn := range warnings {
		w.logger.Warn(ctx, "import warning", "file", path, "warning", warn)
	}
	w.logger.Info(ctx, "imported backup", "file", path,
		"booksAdded", summary.BooksAdded,
		"booksUpdated", summary.BooksUpdated,
		"highlightsAdded", summary.HighlightsAdded,
		"bookmarksAdded", summary.BookmarksAdded,
		"vocabularyAdded", summary.VocabularyAdded)

	if summary.Changed() && w.notify != nil {
		w.notify.Notify()
	}
}

func isImportable(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	return strings.EqualFold(filepath.Ext(ev.Name), ".json")
}

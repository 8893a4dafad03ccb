package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/readersync/internal/client/autosync"
	"github.com/dmitrijs2005/readersync/internal/client/config"
	"github.com/dmitrijs2005/readersync/internal/client/exchange"
	"github.com/dmitrijs2005/readersync/internal/client/repositories/library"
	"github.com/dmitrijs2005/readersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/readersync/internal/client/store"
	"github.com/dmitrijs2005/readersync/internal/client/syncer"
	"github.com/dmitrijs2005/readersync/internal/client/transport"
	"github.com/dmitrijs2005/readersync/internal/identity"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// SyncService is the part of syncer.Service the CLI drives.
type SyncService interface {
	Enable(ctx context.Context) (string, error)
	Join(ctx context.Context, code string) error
	Disable(ctx context.Context) error
	Sync(ctx context.Context) (*models.Dataset, error)
	Status() models.SyncStatus
	OnChange(fn func(models.SyncStatus)) func()
	Remote() bool
}

// Library is the local reader data the CLI edits, exports and imports into.
type Library interface {
	exchange.Source
	exchange.Target
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	sync     SyncService
	lib      Library
	tr       transport.Transport
	deviceID string

	trigger *autosync.Trigger
	reader  *bufio.Reader
	out     io.Writer
	now     func() time.Time
	newID   func() string
	closers []io.Closer
}

// newTransport is a seam so tests can run the app without a backend.
var newTransport = transport.New

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, logFile := logging.NewFileLogger(c.LogFile, logging.ParseLevel(c.LogLevel))
	app := &App{
		config:  c,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		now:     time.Now,
		newID:   uuid.NewString,
		closers: []io.Closer{logFile},
	}

	db, err := store.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		_ = app.Close()
		return nil, err
	}
	app.closers = append(app.closers, db)

	if err := app.wire(ctx, db); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, db *sql.DB) error {
	meta := metadata.NewSQLiteRepository(db)
	ids := identity.NewStore(meta, a.logger)
	a.deviceID = ids.DeviceID(ctx)

	tr, err := newTransport(ctx, a.config, meta, a.deviceID, a.logger)
	if err != nil {
		return fmt.Errorf("sync backend %s: %w", a.config.Backend, err)
	}
	a.tr = tr
	a.closers = append(a.closers, tr)

	lib := library.NewStore(db)
	a.lib = lib
	a.sync = syncer.NewService(ctx, tr, lib, ids, a.logger, syncer.Options{MaxPushAttempts: a.config.MaxPushAttempts})

	a.logger.Info(ctx, "client ready", "device", a.deviceID, "backend", tr.Name())
	return nil
}

// Run starts background sync and the REPL. It returns when the user exits,
// stdin closes or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.trigger = autosync.NewTrigger(ctx, a.config.DebounceInterval, a.autoSync, a.enabled, a.logger)
	defer a.trigger.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if a.config.ImportDir != "" {
		w, err := autosync.NewImportWatcher(a.config.ImportDir, a.lib, a.trigger, a.logger)
		if err != nil {
			return err
		}
		if err := w.Start(gctx); err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
	}

	if n, ok := a.tr.(transport.Notifier); ok {
		g.Go(func() error {
			a.followChanges(gctx, n)
			return nil
		})
	}

	fmt.Fprintln(a.out, "readersync (type 'help' for commands)")

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(gctx, a, a.prompt, a.reader, isTerminal(int(os.Stdin.Fd())))
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	cancel()

	return g.Wait()
}

// Close releases the transport, the database and the log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) enabled() bool {
	return a.sync.Status().Enabled
}

func (a *App) autoSync(ctx context.Context) error {
	_, err := a.sync.Sync(ctx)
	return err
}

// changed schedules a background sync after a local edit.
func (a *App) changed() {
	if a.trigger != nil {
		a.trigger.Notify()
	}
}

// followChanges subscribes to pushes from other devices in the current
// group and resubscribes whenever the group changes.
func (a *App) followChanges(ctx context.Context, n transport.Notifier) {
	wake := make(chan struct{}, 1)
	unsubscribe := a.sync.OnChange(func(models.SyncStatus) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	following := ""
	cancel := func() {}
	defer func() { cancel() }()

	for {
		if code := a.sync.Status().SyncCode; code != following {
			cancel()
			cancel = func() {}
			following = code
			if code != "" {
				subCtx, subCancel := context.WithCancel(ctx)
				cancel = subCancel
				go a.trigger.Watch(subCtx, n.Changes(subCtx, code, a.deviceID))
				a.logger.Debug(ctx, "following group changes", "code", code)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-wake:
		}
	}
}

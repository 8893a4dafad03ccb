// Package autosync schedules background syncs after local changes.
//
// A Trigger debounces change notifications into single sync runs and never
// lets two runs overlap. An ImportWatcher feeds backup files dropped into an
// inbox directory into the library and notifies the trigger.
package autosync

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/readersync/internal/logging"
)

// State is the trigger's scheduling state.
type State int

const (
	// Idle: no timer armed, nothing running.
	Idle State = iota
	// Armed: a timer is pending.
	Armed
	// Running: a sync is in flight.
	Running
	// RunningDirty: a sync is in flight and another change arrived.
	RunningDirty
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	case RunningDirty:
		return "running-dirty"
	default:
		return "unknown"
	}
}

// RunFunc performs one sync.
type RunFunc func(ctx context.Context) error

// Trigger coalesces Notify calls. Each Notify restarts the debounce timer;
// when it fires, run is called once. Notifications during a run schedule
// exactly one follow-up run after it completes.
type Trigger struct {
	mu       sync.Mutex
	state    State
	timer    *time.Timer
	gen      uint64
	stopped  bool
	interval time.Duration

	ctx    context.Context
	run    RunFunc
	active func() bool
	logger logging.Logger
	wg     sync.WaitGroup
	runs   int
}

// NewTrigger returns an idle trigger. Runs use ctx. active reports whether
// sync is enabled; while it returns false notifications are dropped. A nil
// active means always active.
func NewTrigger(ctx context.Context, interval time.Duration, run RunFunc, active func() bool, l logging.Logger) *Trigger {
	if active == nil {
		active = func() bool { return true }
	}
	if l == nil {
		l = logging.Nop()
	}
	return &Trigger{
		ctx:      ctx,
		interval: interval,
		run:      run,
		active:   active,
		logger:   l.With("module", "autosync"),
	}
}

// Notify reports a local change.
func (t *Trigger) Notify() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	if !t.active() {
		t.disarmLocked()
		return
	}

	switch t.state {
	case Idle, Armed:
		t.armLocked()
	case Running:
		t.state = RunningDirty
	}
}

// State returns the current state.
func (t *Trigger) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Runs returns how many syncs the trigger has started.
func (t *Trigger) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

// Stop cancels a pending timer and waits for an in-flight run. Notify is a
// no-op afterwards.
func (t *Trigger) Stop() {
	t.mu.Lock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	if t.state == Armed {
		t.state = Idle
	}
	t.mu.Unlock()

	t.wg.Wait()
}

// Watch calls Notify for every value received on ch until ctx is done or
// ch is closed.
func (t *Trigger) Watch(ctx context.Context, ch <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			t.Notify()
		}
	}
}

func (t *Trigger) armLocked() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.interval, func() { t.fire(gen) })
	t.state = Armed
}

func (t *Trigger) disarmLocked() {
	if t.state != Armed {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.state = Idle
}

func (t *Trigger) fire(gen uint64) {
	t.mu.Lock()
	if t.stopped || gen != t.gen || t.state != Armed {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	if !t.active() {
		t.state = Idle
		t.mu.Unlock()
		return
	}
	t.state = Running
	t.runs++
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()

	if err := t.run(t.ctx); err != nil {
		t.logger.Warn(t.ctx, "auto sync failed", "error", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == RunningDirty && !t.stopped && t.active() {
		t.armLocked()
		return
	}
	t.state = Idle
}

package syncer

import (
	"sync"

	"github.com/dmitrijs2005/readersync/internal/models"
)

// StatusHandle owns the current SyncStatus. Readers get copies; writers go
// through Update so subscribers see every change.
type StatusHandle struct {
	mu   sync.Mutex
	st   models.SyncStatus
	subs map[int]func(models.SyncStatus)
	next int
}

func NewStatusHandle(initial models.SyncStatus) *StatusHandle {
	return &StatusHandle{st: initial, subs: make(map[int]func(models.SyncStatus))}
}

// Get returns a copy of the current status.
func (h *StatusHandle) Get() models.SyncStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.st
}

// Update applies fn to the status and notifies subscribers with the result.
// Subscribers run on the caller's goroutine, outside the lock.
func (h *StatusHandle) Update(fn func(*models.SyncStatus)) {
	h.mu.Lock()
	fn(&h.st)
	st := h.st
	subs := make([]func(models.SyncStatus), 0, len(h.subs))
	for _, f := range h.subs {
		subs = append(subs, f)
	}
	h.mu.Unlock()

	for _, f := range subs {
		f(st)
	}
}

// OnChange registers fn for every future update. The returned function
// unsubscribes.
func (h *StatusHandle) OnChange(fn func(models.SyncStatus)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Package transport moves sync envelopes between a device and the store its
// sync group lives in. Every backend implements Transport; the orchestrator
// does not know which one it talks to.
//
// Revision tokens are opaque to callers. The empty token means "no record
// expected", so a PutGroup with it creates the group and fails with
// common.ErrRevisionConflict if someone else created it first.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/readersync/internal/groups"
	"github.com/dmitrijs2005/readersync/internal/models"
)

// Snapshot is what FetchGroup returns. Envelope is nil when the group has no
// usable data yet.
type Snapshot = groups.Snapshot

// PutResult is what a successful PutGroup returns.
type PutResult = groups.PutResult

type Transport interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Remote reports whether other devices can see this backend. In local
	// mode any code is accepted on join.
	Remote() bool

	GroupExists(ctx context.Context, code string) (bool, error)

	// CreateGroup registers an empty group. It fails with
	// common.ErrGroupExists when the code is taken.
	CreateGroup(ctx context.Context, code, deviceID string) error

	FetchGroup(ctx context.Context, code string) (*Snapshot, error)

	// PutGroup stores env if the group is still at revision.
	PutGroup(ctx context.Context, code string, env *models.Envelope, revision string) (*PutResult, error)

	Close() error
}

// Error is a failed backend call. It unwraps to the underlying cause, which
// is one of the common sentinels whenever the backend can tell.
type Error struct {
	Op      string
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Backend: backend, Err: err}
}

// withTimeout bounds a single backend call. A non-positive d leaves ctx
// as is.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

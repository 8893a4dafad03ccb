package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/identity"
)

// Enable creates a new sync group and prints its pairing code.
func (a *App) Enable(ctx context.Context, _ []string) error {
	code, err := a.sync.Enable(ctx)
	if code != "" {
		fmt.Fprintf(a.out, "Sync enabled. Pairing code: %s\n", okColor.Sprint(code))
		if !a.sync.Remote() {
			fmt.Fprintln(a.out, warnColor.Sprint("No sync server configured; data stays on this device."))
		}
	}
	if err != nil {
		if code != "" {
			return a.fail(fmt.Errorf("initial sync failed: %w", err))
		}
		return a.fail(err)
	}
	return nil
}

// Join binds this device to an existing group. The code may be typed in
// any case.
func (a *App) Join(ctx context.Context, args []string) error {
	input := ""
	if len(args) > 0 {
		input = args[0]
	} else {
		var err error
		input, err = GetSimpleText(a.reader, "Enter pairing code", a.out)
		if err != nil {
			return a.fail(err)
		}
	}

	if err := a.sync.Join(ctx, input); err != nil {
		if errors.Is(err, common.ErrInvalidSyncCode) {
			return a.fail(fmt.Errorf("%q is not a valid pairing code: %w", identity.NormalizeCode(input), err))
		}
		if errors.Is(err, common.ErrGroupNotFound) {
			return a.fail(err)
		}
		if st := a.sync.Status(); st.Enabled {
			return a.fail(fmt.Errorf("joined %s but initial sync failed: %w", st.SyncCode, err))
		}
		return a.fail(err)
	}

	st := a.sync.Status()
	fmt.Fprintf(a.out, "Joined %s (%d devices)\n", okColor.Sprint(st.SyncCode), max(st.DeviceCount, 1))
	return nil
}

// Disable stops syncing on this device only.
func (a *App) Disable(ctx context.Context, _ []string) error {
	if err := a.sync.Disable(ctx); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Sync disabled on this device.")
	return nil
}

// Sync runs one sync now.
func (a *App) Sync(ctx context.Context, _ []string) error {
	merged, err := a.sync.Sync(ctx)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Synced %d items across %d devices\n", merged.Count(), max(a.sync.Status().DeviceCount, 1))
	return nil
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dmitrijs2005/readersync/internal/models"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

// prompt is the REPL status shown before each command.
func (a *App) prompt() string {
	st := a.sync.Status()
	switch {
	case st.IsSyncing:
		return "(syncing) "
	case st.Enabled:
		return fmt.Sprintf("(%s) ", st.SyncCode)
	default:
		return ""
	}
}

// Status prints the current sync status.
func (a *App) Status(ctx context.Context, _ []string) error {
	fmt.Fprint(a.out, formatStatus(a.sync.Status(), a.backend()))
	return nil
}

func (a *App) backend() string {
	name := a.config.Backend
	if name == "" {
		name = "local"
	}
	if a.sync.Remote() {
		return name
	}
	return name + " (this device only)"
}

func formatStatus(st models.SyncStatus, backend string) string {
	var b strings.Builder

	if st.Enabled {
		fmt.Fprintf(&b, "Sync:        %s (code %s)\n", okColor.Sprint("enabled"), st.SyncCode)
	} else {
		fmt.Fprintf(&b, "Sync:        %s\n", warnColor.Sprint("disabled"))
	}
	fmt.Fprintf(&b, "Backend:     %s\n", backend)
	if st.Enabled {
		fmt.Fprintf(&b, "Devices:     %d\n", max(st.DeviceCount, 1))
	}
	if st.LastSyncedAt > 0 {
		fmt.Fprintf(&b, "Last synced: %s\n", time.UnixMilli(st.LastSyncedAt).UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(&b, "Last synced: never")
	}
	if st.IsSyncing {
		fmt.Fprintln(&b, "Syncing:     yes")
	}
	if st.Error != "" {
		fmt.Fprintf(&b, "Error:       %s\n", errColor.Sprint(st.Error))
	}
	return b.String()
}

// fail prints err in red and returns it.
func (a *App) fail(err error) error {
	fmt.Fprintln(a.out, errColor.Sprint("error: "+err.Error()))
	return err
}

// Package cli provides the interactive readersync command-line client.
//
// It wires configuration, the local library, the sync transport, the sync
// service and the auto-sync trigger, then runs a REPL. Typical flow: add
// books or reading progress, enable sync on one device, join the printed
// pairing code on another, and let edits propagate in the background.
//
// Key features:
//   - Enable / Join / Disable / Sync / Status
//   - Library edits: books, progress, highlights, bookmarks, vocabulary
//   - Export / Import of versioned JSON backups
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Status(ctx context.Context, args []string) error
	Enable(ctx context.Context, args []string) error
	Join(ctx context.Context, args []string) error
	Disable(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error

	Books(ctx context.Context, args []string) error
	AddBook(ctx context.Context, args []string) error
	Progress(ctx context.Context, args []string) error
	Highlight(ctx context.Context, args []string) error
	Bookmark(ctx context.Context, args []string) error
	Word(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error

	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  status                          show sync status
  enable                          create a sync group and print its pairing code
  join <code>                     join the group of another device
  disable                         stop syncing on this device
  sync                            sync now
  books                           list books with progress
  add-book [title=.. author=..]   add a book
  progress <book> <percent> [cfi] record reading progress
  highlight <book> <cfi>          add a highlight
  bookmark <book> <cfi> [title]   add a bookmark
  word <word> [definition]        add a vocabulary word
  delete <kind> <id>              delete a book, highlight, bookmark or vocabulary word
  export [path]                   write a JSON backup
  import <path> [merge|overwrite] restore a JSON backup
  exit | quit                     leave the program`

// runREPL starts a simple read–eval–print loop for the readersync CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a' with the remaining tokens as arguments.
// Unknown commands are reported back to the user. The loop exits on EOF,
// when ctx is done, or when the user types "exit" or "quit".
//
// The prompt shows the current status (from statusFn) and is only printed
// when prompt is true, so piped input produces clean output.
//
// Errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, prompt bool) {
	for ctx.Err() == nil {
		if prompt {
			printlnFn(fmt.Sprintf("readersync %s> ", statusFn()))
		}
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return
		}
		if done := dispatch(ctx, a, line); done {
			return
		}
		if err != nil {
			return
		}
	}
}

func dispatch(ctx context.Context, a execIface, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help":
		printlnFn(helpText)
	case "status":
		_ = a.Status(ctx, args)
	case "enable":
		_ = a.Enable(ctx, args)
	case "join":
		_ = a.Join(ctx, args)
	case "disable":
		_ = a.Disable(ctx, args)
	case "sync":
		_ = a.Sync(ctx, args)
	case "l", "books":
		_ = a.Books(ctx, args)
	case "add-book":
		_ = a.AddBook(ctx, args)
	case "progress":
		_ = a.Progress(ctx, args)
	case "highlight":
		_ = a.Highlight(ctx, args)
	case "bookmark":
		_ = a.Bookmark(ctx, args)
	case "word":
		_ = a.Word(ctx, args)
	case "delete":
		_ = a.Delete(ctx, args)
	case "export":
		_ = a.Export(ctx, args)
	case "import":
		_ = a.Import(ctx, args)
	case "exit", "quit":
		printlnFn("Bye!")
		return true
	default:
		printlnFn("Unknown command:", cmd)
	}
	return false
}

package cli

import (
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Books(ctx context.Context) error
	Search(ctx context.Context, text string) error
	Sort(ctx context.Context, key string) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Page(ctx context.Context, n string) error
	Show(ctx context.Context, bookID string) error
	Review(ctx context.Context, bookID string) error
	Users(ctx context.Context, query string) error
	Profile(ctx context.Context) error
	User(ctx context.Context, userID string) error
	Theme(ctx context.Context) error
}

const (
	helpGuest = "Available commands: register, login, books, search <text>, sort <title|rating|popularity>, next, prev, page <n>, show <bookID>, theme, exit"
	helpUser  = "Available commands: books, search <text>, sort <title|rating|popularity>, next, prev, page <n>, show <bookID>, review <bookID>, users <query>, profile, user <userID>, whoami, theme, logout, exit"
)

// runREPL starts a simple read-eval-print loop for the dabooks CLI.
//
// It reads a line with readLine, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits when readLine fails (EOF), when ctx is done, or when
// the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                    show available commands
//	  - books                   reload and show the current catalog page
//	  - search <text>           filter by title/author (empty text clears)
//	  - sort <key>              sort by title, rating or popularity; repeat to flip
//	  - next | prev | page n    paginate
//	  - show <bookID>           book details with its reviews
//	  - theme                   toggle dark mode
//	  - exit | quit             leave the program
//
//	Not logged in:
//	  - register, login
//
//	Logged in:
//	  - review <bookID>         write a review
//	  - users <query>           find users
//	  - profile | user <id>     own or another user's profile
//	  - whoami, logout
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, readLine func() (string, error)) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("dabooks %s> ", statusFn()))
		line, err := readLine()
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		rest := strings.Join(args, " ")

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpUser)
			} else {
				printlnFn(helpGuest)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "books", "b":
			_ = a.Books(ctx)

		case "search":
			_ = a.Search(ctx, rest)

		case "sort":
			if len(args) != 1 {
				printlnFn("Usage: sort <title|rating|popularity>")
				continue
			}
			_ = a.Sort(ctx, args[0])

		case "next", "n":
			_ = a.Next(ctx)

		case "prev", "p":
			_ = a.Prev(ctx)

		case "page":
			if len(args) != 1 {
				printlnFn("Usage: page <n>")
				continue
			}
			_ = a.Page(ctx, args[0])

		case "show":
			if len(args) != 1 {
				printlnFn("Usage: show <bookID>")
				continue
			}
			_ = a.Show(ctx, args[0])

		case "review":
			if len(args) != 1 {
				printlnFn("Usage: review <bookID>")
				continue
			}
			_ = a.Review(ctx, args[0])

		case "users":
			if rest == "" {
				printlnFn("Usage: users <query>")
				continue
			}
			_ = a.Users(ctx, rest)

		case "profile":
			_ = a.Profile(ctx)

		case "user":
			if len(args) != 1 {
				printlnFn("Usage: user <userID>")
				continue
			}
			_ = a.User(ctx, args[0])

		case "theme":
			_ = a.Theme(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

type readResult struct {
	line string
	err  error
}

// Root runs the REPL on the App's input until the user leaves or ctx is
// cancelled. A read still blocked at cancellation is abandoned.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to dabooks (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, func() (string, error) {
		ch := make(chan readResult, 1)
		go func() {
			line, err := a.reader.ReadString('\n')
			ch <- readResult{line, err}
		}()
		select {
		case r := <-ch:
			return r.line, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

// Package cli provides the interactive dabooks command-line client.
//
// It wires configuration, the local state database, the API client and an
// interactive REPL for browsing the book catalog. Typical flow: restore the
// persisted session and theme, start the session expiry watcher, and execute
// user commands.
//
// Key features:
//   - Register / Login / Logout
//   - Browse books with debounced search, sorting and pagination
//   - Show a book with its reviews and write a review
//   - Search users and view profiles
//   - Toggle dark mode
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, App.Run, and runREPL for details.
package cli

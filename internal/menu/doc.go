// Package menu runs the interactive CuackProxy menu on a pair of streams.
//
// The menu reads one line per prompt, validates connect input and hands the
// work to a Session. It returns when the user exits, stdin reaches EOF or
// the context is cancelled, and closes the session on every path.
package menu

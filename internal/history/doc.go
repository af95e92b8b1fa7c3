// Package history stores connect attempts in a local SQLite database.
//
// Recording is opt-in. The database holds no key material and no log
// contents, only what the connect flow printed: interface, exit country,
// new MAC, exit IP and location, and the error if there was one.
//
// modernc.org/sqlite is used so the binary stays CGO-free.
package history

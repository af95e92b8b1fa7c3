// Package tor manages the local Tor daemon for cuackproxy.
//
// It writes the per-process torrc, launches tor and waits for it to
// bootstrap, talks to the control port with cookie authentication (via
// tornago), and builds SOCKS5 clients that route HTTP through Tor.
//
// The Manager never kills a daemon it did not start. A Tor that is already
// running is reused when it reports bootstrap done and refused otherwise.
package tor

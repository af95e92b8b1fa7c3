// Package session holds the state of one interactive run: the Tor process
// it launched, if any, and the torrc it wrote. It turns each menu action into
// console messages and audit log entries and tears everything down on exit.
package session

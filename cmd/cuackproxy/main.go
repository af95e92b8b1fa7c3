// Package main provides the entry point for the CuackProxy CLI.
//
// CuackProxy randomizes a network interface's MAC address, starts or reuses
// a Tor daemon with an optional exit country and verifies the exit IP
// through the SOCKS5 proxy. Errors go to an encrypted local log.
//
// Usage:
//
//	sudo cuackproxy            # interactive menu
//	cuackproxy logs            # decrypt the error log
//	cuackproxy doctor          # check the environment
//
// See --help for all available options.
package main

func main() {
	Execute()
}

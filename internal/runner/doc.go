// Package runner executes the external programs cuackproxy depends on
// (tor, pgrep, ifconfig, ip).
//
// Callers depend on the Runner interface so that tests can script outcomes
// with runnertest.Fake instead of spawning real processes. Every failure is
// classified into one of three outcomes: the command ran and exited non-zero,
// the command could not be executed at all, or it succeeded.
package runner

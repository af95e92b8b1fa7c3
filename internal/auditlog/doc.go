// Package auditlog keeps the encrypted error log.
//
// Each entry is "[YYYY-MM-DD HH:MM:SS] message" encrypted as a Fernet token
// and written on its own line of an append-only file. The key lives in a
// separate file and is never created implicitly: without it nothing is
// logged and nothing can be read back.
package auditlog

// Package model defines the value types shared by the connect flow.
//
// ConnectRequest carries what the user asked for, CountryCode is the
// validated exit selection, and Attempt records what actually happened. The
// types live in their own package so tor, netid, pipeline and history can
// use them without importing each other.
package model

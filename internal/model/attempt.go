package model

import (
	"fmt"
	"time"
)

const (
	// ErrorIP is the exit IP reported when verification fails.
	ErrorIP = "Error"

	// UnknownValue replaces any field the geolocation API did not return.
	UnknownValue = "Unknown"
)

// Attempt records one run of the connect flow.
//
// Steps fill in their fields as they complete, so a failed attempt still
// shows how far it got.
type Attempt struct {
	// ID is assigned by the history store.
	ID int64 `json:"id,omitempty"`

	// StartedAt is when the flow began.
	StartedAt time.Time `json:"started_at"`

	// Request is the user's input.
	Request ConnectRequest `json:"-"`

	// Interface and Country mirror Request for serialization.
	Interface string `json:"interface"`
	Country   string `json:"country"`

	// MAC is the address applied to the interface, empty if randomization failed.
	MAC string `json:"mac,omitempty"`

	// TorReused is true when an already running, ready Tor daemon was used.
	TorReused bool `json:"tor_reused"`

	// TorPID is the pid of the Tor process launched by this attempt, 0 if none.
	TorPID int `json:"tor_pid,omitempty"`

	// ExitIP and Location come from the verifier.
	ExitIP   string `json:"exit_ip,omitempty"`
	Location string `json:"location,omitempty"`

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string `json:"performed_steps"`

	// Error is the error that stopped the flow.
	Error error `json:"-"`

	// ErrorMessage is Error as text, kept for storage.
	ErrorMessage string `json:"error,omitempty"`

	// Cancelled is true when the flow was interrupted.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewAttempt starts an attempt for req.
func NewAttempt(req ConnectRequest, now time.Time) *Attempt {
	return &Attempt{
		StartedAt:      now,
		Request:        req,
		Interface:      req.Interface,
		Country:        req.Exit.String(),
		PerformedSteps: make([]string, 0, 3),
	}
}

// Succeeded reports whether the flow ran to completion and the exit IP is known.
func (a *Attempt) Succeeded() bool {
	return a.ErrorMessage == "" && !a.Cancelled && a.ExitIP != "" && a.ExitIP != ErrorIP
}

// FormatLocation renders city and country the way the console shows them.
func FormatLocation(city, country string) string {
	return fmt.Sprintf("%s, %s", city, country)
}

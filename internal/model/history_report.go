package model

import "time"

// Attempt outcomes as shown in history reports.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// HistoryReport summarizes recorded connect attempts, newest first.
type HistoryReport struct {
	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generated_at"`

	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`

	// Reused counts attempts that used an already running Tor.
	Reused int `json:"reused"`

	// Countries counts attempts per exit selection.
	Countries map[string]int `json:"countries,omitempty"`

	Attempts []*Attempt `json:"attempts"`
}

// NewHistoryReport tallies attempts.
func NewHistoryReport(attempts []*Attempt, now time.Time) *HistoryReport {
	r := &HistoryReport{
		GeneratedAt: now,
		Total:       len(attempts),
		Countries:   make(map[string]int),
		Attempts:    attempts,
	}
	if r.Attempts == nil {
		r.Attempts = []*Attempt{}
	}

	for _, a := range attempts {
		switch a.Outcome() {
		case OutcomeSucceeded:
			r.Succeeded++
		case OutcomeCancelled:
			r.Cancelled++
		default:
			r.Failed++
		}
		if a.TorReused {
			r.Reused++
		}
		r.Countries[a.Country]++
	}
	return r
}

// IsEmpty reports whether there is nothing to show.
func (r *HistoryReport) IsEmpty() bool {
	return r.Total == 0
}

// Outcome classifies the attempt.
func (a *Attempt) Outcome() string {
	switch {
	case a.Cancelled:
		return OutcomeCancelled
	case a.Succeeded():
		return OutcomeSucceeded
	default:
		return OutcomeFailed
	}
}

// FailedStep returns the step that stopped a failed attempt, or "".
func (a *Attempt) FailedStep() string {
	if a.ErrorMessage == "" || len(a.PerformedSteps) == 0 {
		return ""
	}
	return a.PerformedSteps[len(a.PerformedSteps)-1]
}

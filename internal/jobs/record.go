// Package jobs tracks asynchronous pipeline executions in memory. Records
// live only for the life of the process; clients poll for progress and fetch
// the result artifact once.
package jobs

import "time"

// Status is the lifecycle state of one job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the tracked state of one job.
type Record struct {
	ID        string
	Kind      string
	Status    Status
	Progress  float64
	Error     string
	Logs      []string
	ResultRef string
	CreatedAt time.Time
	UpdatedAt time.Time
	DoneAt    time.Time
}

// Clone returns a deep copy so callers never share the store's log slice.
func (r Record) Clone() Record {
	clone := r
	if r.Logs != nil {
		clone.Logs = append([]string(nil), r.Logs...)
	}
	return clone
}

// Update is a partial record mutation. Nil fields are left untouched.
type Update struct {
	Status     *Status
	Progress   *float64
	Error      *string
	AppendLogs []string
	ResultRef  *string
}

// StatusUpdate is shorthand for an Update that only moves the status.
func StatusUpdate(status Status) Update {
	return Update{Status: &status}
}

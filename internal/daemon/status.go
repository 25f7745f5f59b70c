package daemon

import "sync/atomic"

// Status is the lifecycle phase reported by /healthz.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

func (s Status) String() string { return string(s) }

// phases indexes statuses for statusCell; the zero index is stopped.
var phases = [...]Status{StatusStopped, StatusStarting, StatusRunning, StatusStopping, StatusError}

func phaseOf(s Status) int32 {
	for i, p := range phases {
		if p == s {
			return int32(i) //nolint:gosec // len(phases) is tiny
		}
	}
	return int32(len(phases) - 1)
}

// statusCell holds a Status that is safe for concurrent use. Its zero value
// reads as StatusStopped.
type statusCell struct {
	phase atomic.Int32
}

func (c *statusCell) Load() Status   { return phases[c.phase.Load()] }
func (c *statusCell) Store(s Status) { c.phase.Store(phaseOf(s)) }

// transition moves from one status to another and reports whether the cell
// held from.
func (c *statusCell) transition(from, to Status) bool {
	return c.phase.CompareAndSwap(phaseOf(from), phaseOf(to))
}

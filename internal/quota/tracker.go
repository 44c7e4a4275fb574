package quota

import "sync"

// State is a point-in-time snapshot of the tracker.
type State struct {
	Used             int  `json:"used"`
	Ceiling          int  `json:"ceiling,omitempty"`
	Exhausted        bool `json:"exhausted"`
	ApproachingLimit bool `json:"approaching_limit"`
}

// Tracker counts cumulative remote calls against a known daily ceiling.
// Within one process run the state is monotonically non-decreasing until
// exhaustion is observed; only an external quota reset starts a new period.
//
// The mutex exists solely for the status server goroutine reading Snapshot;
// the single dispatcher is the only writer.
type Tracker struct {
	mu        sync.Mutex
	used      int
	ceiling   int
	marginPct int
	exhausted bool
}

// NewTracker builds a Tracker. ceiling 0 means the daily budget is unknown
// until the remote system signals exhaustion. marginPct sets the
// approaching-limit threshold as a percentage of the ceiling.
func NewTracker(ceiling, marginPct int) *Tracker {
	if marginPct <= 0 || marginPct > 100 {
		marginPct = 90
	}
	return &Tracker{ceiling: ceiling, marginPct: marginPct}
}

// CanProceed reports whether dispatching another call is allowed. It only
// returns false once the remote system has signaled exhaustion; the local
// ceiling check never hard-stops a run.
func (t *Tracker) CanProceed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.exhausted
}

// RecordCall counts one dispatched remote call.
func (t *Tracker) RecordCall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.used++
}

// MarkExhausted records that the remote system reported quota exhaustion.
// The observed usage becomes the known ceiling when none was configured.
func (t *Tracker) MarkExhausted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exhausted = true
	if t.ceiling == 0 {
		t.ceiling = t.used
	}
}

// ApproachingLimit reports whether usage has crossed the safety margin under
// the last known ceiling. Informational only.
func (t *Tracker) ApproachingLimit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.approachingLocked()
}

func (t *Tracker) approachingLocked() bool {
	if t.ceiling <= 0 {
		return false
	}
	return t.used*100 >= t.ceiling*t.marginPct
}

// Snapshot returns the current quota state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Used:             t.used,
		Ceiling:          t.ceiling,
		Exhausted:        t.exhausted,
		ApproachingLimit: t.approachingLocked(),
	}
}

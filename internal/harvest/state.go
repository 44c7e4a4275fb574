// Package harvest implements the sequential batch dispatcher: one remote
// enrichment call per candidate item, checkpointed after every outcome,
// paced to respect the shared remote rate budget.
package harvest

import (
	"time"

	"github.com/openshelf/bookharvest/internal/quota"
)

// State is the dispatcher's run state machine position.
type State string

// Dispatcher states. READY transitions to RUNNING when iteration begins;
// RUNNING ends in exactly one of the three terminal states.
const (
	StateReady        State = "ready"
	StateRunning      State = "running"
	StateStoppedQuota State = "stopped_quota"
	StateStoppedError State = "stopped_error"
	StateCompleted    State = "completed"
)

// User-visible stop reasons for the final summary.
const (
	ReasonCompleted      = "completed"
	ReasonQuotaExhausted = "quota_exhausted"
	ReasonError          = "error"
	ReasonDryRun         = "dry_run"
)

// Outcome summarizes one invocation. Derived from the checkpoint at run end,
// never stored.
type Outcome struct {
	State         State
	StoppedReason string
	Processed     int
	Failed        int
	Remaining     int
	QuotaUsed     int
	Elapsed       time.Duration
}

// Snapshot is the live view served by the status API while a run is in
// flight.
type Snapshot struct {
	RunID     string      `json:"run_id"`
	Job       string      `json:"job"`
	State     State       `json:"state"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Remaining int         `json:"remaining"`
	Quota     quota.State `json:"quota"`
	StartedAt time.Time   `json:"started_at"`
}

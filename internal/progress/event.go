// Package progress defines the event structures emitted by the harvest
// dispatcher, a non-blocking hub that batches them, and the sink interfaces
// that consume them.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageRunHB     Stage = "RUN_HEARTBEAT"
	StageRunDone   Stage = "RUN_DONE"
	StageItemDone  Stage = "ITEM_DONE"
	StageItemError Stage = "ITEM_ERROR"
)

// Event captures a single component of harvest progress.
type Event struct {
	// RunID uniquely identifies a harvest run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or item milestone occurred.
	Stage Stage
	// Identity scopes item events to one candidate.
	Identity string
	// Reason carries the failure reason for ITEM_ERROR and the stop reason
	// for RUN_DONE.
	Reason string
	// Processed/Failed/Remaining are the run counters at emit time.
	Processed int64
	Failed    int64
	Remaining int64
	// QuotaUsed is the cumulative remote call count.
	QuotaUsed int64
	// Dur captures the remote call latency for item events and the total
	// wall time for RUN_DONE.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunHB, StageRunDone:
	case StageItemDone:
		if e.Identity == "" {
			return errors.New("item done requires identity")
		}
	case StageItemError:
		if e.Identity == "" {
			return errors.New("item error requires identity")
		}
		if e.Reason == "" {
			return errors.New("item error requires reason")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

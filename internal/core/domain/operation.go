package domain

import (
	"encoding/json"
	"time"
)

// OperationKind identifies the target semantics of a queued operation.
type OperationKind string

const (
	KindAttendanceSync   OperationKind = "attendance-sync"
	KindVerificationSync OperationKind = "verification-sync"
)

// Operation is one unit of outbound work awaiting delivery to the remote
// authority. An operation is either pending in the store or absent
// (delivered or dropped); there is no third persisted state.
type Operation struct {
	ID         string          `json:"id"          db:"id"`
	Kind       OperationKind   `json:"kind"        db:"kind"`
	Endpoint   string          `json:"endpoint"    db:"endpoint"`
	Method     string          `json:"method"      db:"method"`
	Payload    json.RawMessage `json:"payload"     db:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at" db:"enqueued_at"`

	// RetryCount is the number of orchestrator runs that have already
	// attempted this operation. It survives restarts and is distinct from
	// the retry executor's in-call attempt counter.
	RetryCount int `json:"retry_count" db:"retry_count"`
}

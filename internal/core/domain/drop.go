package domain

import "time"

// DropRecord is the observability trail left behind when an operation is
// permanently dropped after a terminal failure.
type DropRecord struct {
	OperationID string        `json:"operation_id" db:"operation_id"`
	Kind        OperationKind `json:"kind"         db:"kind"`
	Endpoint    string        `json:"endpoint"     db:"endpoint"`
	Reason      string        `json:"reason"       db:"reason"`
	DroppedAt   time.Time     `json:"dropped_at"   db:"dropped_at"`
}

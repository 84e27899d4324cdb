package domain

import "time"

// SyncStatus is a derived summary for display. It is rebuilt from the queue
// and candidate stores on demand and is never the source of truth for
// delivery state.
type SyncStatus struct {
	TotalRegistered     int        `json:"total_registered"`
	Synced              int        `json:"synced"`
	Pending             int        `json:"pending"`
	Verified            int        `json:"verified"`
	PendingVerification int        `json:"pending_verification"`
	LastSync            *time.Time `json:"last_sync,omitempty"`
	NextSync            *time.Time `json:"next_sync,omitempty"`
}

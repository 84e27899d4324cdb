package domain

import "time"

// Candidate is the locally registered candidate record the status
// aggregator projects over. Registration and verification semantics live
// outside the sync engine; only the flags needed for counts are kept here.
type Candidate struct {
	ID           string    `json:"id"            db:"id"`
	Name         string    `json:"name"          db:"name"`
	Synced       bool      `json:"synced"        db:"synced"`
	Verified     bool      `json:"verified"      db:"verified"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

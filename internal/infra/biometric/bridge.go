package biometric

import (
	"context"
	"time"
)

// Bridge is the contract to the device fingerprint stack. The engine never
// looks inside capture or matching; failures surface as ordinary errors and
// flow through the same classifier as any other operation payload error.
type Bridge interface {
	// Capture acquires a fingerprint template within the timeout,
	// retrying on-device up to retries times.
	Capture(ctx context.Context, timeout time.Duration, retries int) (CaptureResult, error)

	// Match compares two templates against a threshold.
	Match(ctx context.Context, a, b []byte, threshold int) (MatchResult, error)
}

// CaptureResult is the outcome of a capture attempt.
type CaptureResult struct {
	Success  bool   `json:"success"`
	Template []byte `json:"template"`
	// Quality is 0-100; NFIQ is the 1 (best) to 5 (worst) NIST scale.
	Quality int `json:"quality"`
	NFIQ    int `json:"nfiq"`
}

// MatchResult is the outcome of a template comparison.
type MatchResult struct {
	Match bool `json:"match"`
	Score int  `json:"score"` // 0-100
}

package biometric

import (
	"bytes"
	"context"
	"time"
)

// Loopback is a device-free Bridge used in development builds and tests.
// Capture returns a fixed high-quality template; Match compares templates
// byte-for-byte.
type Loopback struct {
	Template []byte
	Err      error
}

func (l *Loopback) Capture(ctx context.Context, timeout time.Duration, retries int) (CaptureResult, error) {
	if l.Err != nil {
		return CaptureResult{}, l.Err
	}
	tpl := l.Template
	if tpl == nil {
		tpl = []byte("loopback-template")
	}
	return CaptureResult{
		Success:  true,
		Template: tpl,
		Quality:  90,
		NFIQ:     1,
	}, nil
}

func (l *Loopback) Match(ctx context.Context, a, b []byte, threshold int) (MatchResult, error) {
	if l.Err != nil {
		return MatchResult{}, l.Err
	}
	if bytes.Equal(a, b) {
		return MatchResult{Match: true, Score: 100}, nil
	}
	return MatchResult{Match: false, Score: 0}, nil
}

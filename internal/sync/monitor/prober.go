package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ProbeConfig holds connectivity probe settings.
type ProbeConfig struct {
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
}

// Prober periodically checks reachability of the authority health endpoint
// and feeds observations into the monitor. Any HTTP response counts as
// online; only transport failures count as offline.
type Prober struct {
	cfg        ProbeConfig
	monitor    *Monitor
	httpClient *http.Client
}

// NewProber creates a connectivity prober.
func NewProber(cfg ProbeConfig, m *Monitor) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Prober{
		cfg:     cfg,
		monitor: m,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Run probes until the context is canceled.
func (p *Prober) Run(ctx context.Context) {
	if p.cfg.URL == "" {
		return
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.probe(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.cfg.URL, nil)
	if err != nil {
		slog.Error("bad probe URL", "url", p.cfg.URL, "error", err)
		return
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.monitor.SetOnline(false)
		return
	}
	resp.Body.Close()
	p.monitor.SetOnline(true)
}

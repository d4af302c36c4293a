// Package ready probes end-to-end scrape health on a fixed interval
// and exposes the latest verdict to the readiness endpoint.
package ready

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"marketscrape/internal/config"
	"marketscrape/internal/engine"
	"marketscrape/internal/marketplace"
)

// Scraper is the slice of the engine the prober needs.
type Scraper interface {
	Scrape(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Status is the readiness snapshot served to clients.
type Status struct {
	Ready     bool       `json:"ready"`
	LastCheck *time.Time `json:"last_check"`
	LastError string     `json:"error,omitempty"`
}

// Prober scrapes a known-good product on an interval and flips the
// readiness flag on the outcome. With no probe ASIN configured it is
// inert and always reports ready.
type Prober struct {
	mu       sync.Mutex
	scraper  Scraper
	logger   *slog.Logger
	url      string
	interval time.Duration

	ready     bool
	lastCheck time.Time
	lastError string
}

func NewProber(cfg config.ReadyCheckConfig, scraper Scraper, logger *slog.Logger) *Prober {
	p := &Prober{scraper: scraper, logger: logger, ready: true}
	if cfg.ASIN == "" {
		return p
	}

	mkt, ok := marketplace.ByCode(cfg.Country)
	if !ok {
		logger.Warn("ready check disabled, unknown country", "country", cfg.Country)
		return p
	}

	p.url = marketplace.ProductURL(mkt, cfg.ASIN)
	p.interval = time.Duration(cfg.IntervalSeconds) * time.Second
	p.ready = false
	return p
}

// Run probes immediately and then on every tick until the context is
// cancelled. It returns at once when the prober is inert.
func (p *Prober) Run(ctx context.Context) {
	if p.url == "" {
		return
	}

	p.probe(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
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
	_, err := p.scraper.Scrape(ctx, engine.Request{URL: p.url})

	p.mu.Lock()
	p.lastCheck = time.Now()
	if err != nil {
		p.ready = false
		p.lastError = err.Error()
	} else {
		p.ready = true
		p.lastError = ""
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("readiness probe failed", "error", err)
	} else {
		p.logger.Debug("readiness probe ok")
	}
}

// Status returns the latest readiness snapshot.
func (p *Prober) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{Ready: p.ready, LastError: p.lastError}
	if !p.lastCheck.IsZero() {
		t := p.lastCheck
		s.LastCheck = &t
	}
	return s
}

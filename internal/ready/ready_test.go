package ready

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"marketscrape/internal/config"
	"marketscrape/internal/engine"
)

type scrapeFunc func(ctx context.Context, req engine.Request) (*engine.Result, error)

func (f scrapeFunc) Scrape(ctx context.Context, req engine.Request) (*engine.Result, error) {
	return f(ctx, req)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInertWithoutASIN(t *testing.T) {
	p := NewProber(config.ReadyCheckConfig{Country: "IN", IntervalSeconds: 900}, nil, discard())

	s := p.Status()
	if !s.Ready {
		t.Fatalf("inert prober should report ready")
	}
	if s.LastCheck != nil {
		t.Fatalf("inert prober should have no last check")
	}

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("inert prober did not return from Run")
	}
}

func TestProbeFlipsOnOutcome(t *testing.T) {
	var mu sync.Mutex
	fail := true
	var gotURL string
	scraper := scrapeFunc(func(_ context.Context, req engine.Request) (*engine.Result, error) {
		mu.Lock()
		defer mu.Unlock()
		gotURL = req.URL
		if fail {
			return nil, errors.New("upstream down")
		}
		return &engine.Result{}, nil
	})

	p := NewProber(config.ReadyCheckConfig{
		ASIN:            "B0ABCD1234",
		Country:         "IN",
		IntervalSeconds: 900,
	}, scraper, discard())

	if p.Status().Ready {
		t.Fatalf("prober with probe target should start not ready")
	}

	p.probe(context.Background())
	s := p.Status()
	if s.Ready {
		t.Fatalf("failed probe left prober ready")
	}
	if s.LastError == "" || s.LastCheck == nil {
		t.Fatalf("status = %+v", s)
	}

	mu.Lock()
	fail = false
	mu.Unlock()
	p.probe(context.Background())
	s = p.Status()
	if !s.Ready || s.LastError != "" {
		t.Fatalf("status after success = %+v", s)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotURL != "https://www.amazon.in/dp/B0ABCD1234" {
		t.Fatalf("probe URL = %q", gotURL)
	}
}

func TestStatusJSONFieldNames(t *testing.T) {
	scraper := scrapeFunc(func(context.Context, engine.Request) (*engine.Result, error) {
		return nil, errors.New("upstream down")
	})
	p := NewProber(config.ReadyCheckConfig{
		ASIN:            "B0ABCD1234",
		Country:         "IN",
		IntervalSeconds: 900,
	}, scraper, discard())
	p.probe(context.Background())

	raw, err := json.Marshal(p.Status())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := fields["error"]; !ok {
		t.Fatalf("failure field must serialize as \"error\": %s", raw)
	}
	if _, ok := fields["last_error"]; ok {
		t.Fatalf("unexpected last_error field: %s", raw)
	}
	if _, ok := fields["last_check"]; !ok {
		t.Fatalf("missing last_check field: %s", raw)
	}
}

func TestUnknownCountryDisablesProber(t *testing.T) {
	p := NewProber(config.ReadyCheckConfig{
		ASIN:            "B0ABCD1234",
		Country:         "ZZ",
		IntervalSeconds: 900,
	}, nil, discard())

	if !p.Status().Ready {
		t.Fatalf("disabled prober should report ready")
	}
}

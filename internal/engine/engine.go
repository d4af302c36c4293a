// Package engine orchestrates the scrape pipeline: validation, cache
// lookup, coalescing, circuit breaking, dispatch to the worker pool,
// and the render/extract/retry loop itself.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/singleflight"

	"marketscrape/internal/breaker"
	"marketscrape/internal/cache"
	"marketscrape/internal/config"
	"marketscrape/internal/dispatch"
	"marketscrape/internal/extract"
	"marketscrape/internal/marketplace"
	"marketscrape/internal/metrics"
	"marketscrape/internal/robots"
)

// PageContext is one isolated browser session as the engine sees it.
type PageContext interface {
	Navigate(url string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	HTML() (string, error)
	Close()
}

// Browser is the engine's view of the browser manager.
type Browser interface {
	NewContext(headless bool, proxy string) (PageContext, error)
	Running() bool
}

// Request is one scrape job as received from the API layer.
type Request struct {
	URL      string
	Headless *bool
	Proxy    string
}

// Result is a successful scrape outcome.
type Result struct {
	Product *extract.Product
	Country marketplace.Descriptor
	Cached  bool
}

const (
	breakerThreshold = 5
	breakerCoolOff   = 60 * time.Second
	awaitGrace       = 10 * time.Second
	titleAnchor      = "#productTitle"
	maxBackoff       = 10 * time.Second
)

// Engine wires the pipeline together. One instance per process.
type Engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	browser Browser
	cache   cache.Store
	breaker *breaker.Breaker
	pool    *dispatch.Pool
	robots  *robots.Checker
	group   singleflight.Group
}

func New(cfg *config.Config, logger *slog.Logger, b Browser, store cache.Store) *Engine {
	e := &Engine{
		cfg:     cfg,
		logger:  logger,
		browser: b,
		cache:   store,
		breaker: breaker.New(breakerThreshold, breakerCoolOff),
		pool:    dispatch.NewPool(cfg.Scraper.MaxConcurrency),
	}
	if cfg.Scraper.RespectRobots {
		e.robots = robots.NewChecker()
	}
	e.pool.OnDepthChange(func(depth int) {
		metrics.QueueDepth.Set(float64(depth))
	})
	return e
}

// Scrape runs the full pipeline for one product URL. Identical
// in-flight fingerprints are coalesced onto a single render; the
// duplicates receive the same result without touching the queue.
func (e *Engine) Scrape(ctx context.Context, req Request) (*Result, error) {
	mkt, err := marketplace.FromURL(req.URL)
	if err != nil {
		if err == marketplace.ErrUnknownDomain {
			return nil, newError(KindUnknownCountry, "", err.Error(), nil)
		}
		return nil, newError(KindInvalidURL, "", err.Error(), nil)
	}

	asin := extract.ASIN(req.URL)
	if asin == "" {
		return nil, newError(KindInvalidASIN, mkt.Code, "Invalid Amazon URL - ASIN not found", nil)
	}

	fp := extract.Fingerprint{Country: mkt.Code, ASIN: asin}
	if p, ok := e.cache.Get(ctx, fp); ok {
		e.logger.Debug("cache hit", "country", mkt.Code, "asin", asin)
		return &Result{Product: p, Country: mkt, Cached: true}, nil
	}

	if e.breaker.IsOpen(mkt.Code) {
		return nil, newError(KindBreakerOpen, mkt.Code, "Service temporarily unavailable", nil)
	}

	// Workers navigate the URL as submitted; variant selectors and
	// other query parameters must survive to the page load.
	if e.robots != nil && !e.robots.Allowed(ctx, req.URL) {
		return nil, newError(KindRobotsDenied, mkt.Code, "Blocked by robots.txt", nil)
	}

	v, err, _ := e.group.Do(fp.Country+":"+fp.ASIN, func() (any, error) {
		return e.dispatch(ctx, mkt, asin, req.URL, req)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Product: v.(*extract.Product), Country: mkt}, nil
}

// dispatch queues the render and waits for it with a grace period on
// top of the scrape timeout, so a worker that is mid-render when the
// deadline passes still gets to finish.
func (e *Engine) dispatch(ctx context.Context, mkt marketplace.Descriptor, asin, targetURL string, req Request) (*extract.Product, error) {
	headless := e.cfg.Scraper.Headless
	if req.Headless != nil {
		headless = *req.Headless
	}
	proxy := req.Proxy
	if proxy == "" {
		proxy = e.pickProxy()
	}

	start := time.Now()
	handle, err := e.pool.Submit(func() (any, error) {
		return e.scrapeWithRetries(mkt, asin, targetURL, headless, proxy)
	})
	if err != nil {
		return nil, newError(KindRenderError, mkt.Code, "Scraper is shutting down", err)
	}

	timeout := e.timeout() + awaitGrace
	v, err := handle.Await(timeout)
	elapsed := time.Since(start)
	metrics.ScrapeDuration.WithLabelValues(mkt.Code).Observe(elapsed.Seconds())

	if err == dispatch.ErrAwaitTimeout {
		e.breaker.RecordFailure(mkt.Code)
		metrics.ScrapeTotal.WithLabelValues("timeout", mkt.Code).Inc()
		return nil, newError(KindTimeout, mkt.Code, "Scrape timed out", err)
	}
	if err != nil {
		e.breaker.RecordFailure(mkt.Code)
		if se, ok := err.(*Error); ok && se.Kind == KindCaptcha {
			metrics.ScrapeTotal.WithLabelValues("captcha", mkt.Code).Inc()
		} else {
			metrics.ScrapeTotal.WithLabelValues("error", mkt.Code).Inc()
		}
		return nil, err
	}

	product := v.(*extract.Product)
	e.breaker.RecordSuccess(mkt.Code)
	metrics.ScrapeTotal.WithLabelValues("success", mkt.Code).Inc()

	e.cache.Set(ctx, extract.Fingerprint{Country: mkt.Code, ASIN: asin}, product)
	metrics.CacheSize.Set(float64(e.cache.Size(ctx)))

	e.logger.Info("scrape complete",
		"country", mkt.Code, "asin", asin, "duration", elapsed.Round(time.Millisecond))
	return product, nil
}

func (e *Engine) pickProxy() string {
	urls := e.cfg.Scraper.ProxyURLs
	if len(urls) == 0 {
		return ""
	}
	return urls[rand.Intn(len(urls))]
}

func (e *Engine) timeout() time.Duration {
	return time.Duration(e.cfg.Scraper.TimeoutSeconds) * time.Second
}

// BrowserRunning reports the browser state for the health endpoint.
func (e *Engine) BrowserRunning() bool { return e.browser.Running() }

// QueueDepth reports the number of queued scrape tasks.
func (e *Engine) QueueDepth() int { return e.pool.QueueDepth() }

// CacheSize reports the number of live cache entries.
func (e *Engine) CacheSize(ctx context.Context) int { return e.cache.Size(ctx) }

// Close drains the worker pool. The caller stops the browser after.
func (e *Engine) Close() { e.pool.Close() }

package engine

import (
	"time"

	"marketscrape/internal/browser"
	"marketscrape/internal/extract"
	"marketscrape/internal/marketplace"
	"marketscrape/internal/metrics"
)

// scrapeWithRetries runs the render loop on a pool worker. Transient
// failures are retried with exponential backoff; a CAPTCHA is
// terminal, since retrying against a challenge page only burns
// attempts and draws more attention.
func (e *Engine) scrapeWithRetries(mkt marketplace.Descriptor, asin, targetURL string, headless bool, proxy string) (*extract.Product, error) {
	attempts := e.cfg.Scraper.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff(attempt))
		}

		product, err := e.scrapeOnce(mkt, asin, targetURL, headless, proxy)
		if err == nil {
			return product, nil
		}
		lastErr = err

		if se, ok := err.(*Error); ok && se.Kind == KindCaptcha {
			return nil, err
		}
		e.logger.Warn("scrape attempt failed",
			"country", mkt.Code, "asin", asin, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

// scrapeOnce performs one render and extraction in a fresh browser
// context. The context is released on every exit path.
func (e *Engine) scrapeOnce(mkt marketplace.Descriptor, asin, targetURL string, headless bool, proxy string) (*extract.Product, error) {
	ctx, err := e.browser.NewContext(headless, proxy)
	if err != nil {
		return nil, newError(KindRenderError, mkt.Code, "Failed to open browser context", err)
	}
	defer ctx.Close()

	timeout := e.timeout()
	if err := ctx.Navigate(targetURL, timeout); err != nil {
		return nil, newError(KindRenderError, mkt.Code, "Failed to load product page", err)
	}

	// Missing anchor is not fatal; variant and mobile layouts omit it
	// while still carrying extractable markup.
	if err := ctx.WaitVisible(titleAnchor, timeout); err != nil {
		e.logger.Debug("title anchor not found", "country", mkt.Code, "asin", asin)
	}

	html, err := ctx.HTML()
	if err != nil {
		return nil, newError(KindRenderError, mkt.Code, "Failed to read rendered page", err)
	}

	if extract.DetectCaptcha(html) {
		metrics.CaptchaTotal.WithLabelValues(mkt.Code).Inc()
		return nil, newError(KindCaptcha, mkt.Code, "CAPTCHA_REQUIRED", nil)
	}

	product, err := extract.Build(extract.For(mkt.Code), mkt, asin, html)
	if err != nil {
		return nil, newError(KindRenderError, mkt.Code, "Failed to parse product page", err)
	}
	return product, nil
}

// backoff returns the pre-attempt delay: 2^(attempt-2) seconds before
// the second attempt onward, capped at 10s.
func backoff(attempt int) time.Duration {
	d := time.Second << (attempt - 2)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// RodBrowser adapts the rod-backed manager to the Browser interface.
type RodBrowser struct {
	Manager *browser.Manager
}

func (b RodBrowser) NewContext(headless bool, proxy string) (PageContext, error) {
	return b.Manager.Context(headless, proxy)
}

func (b RodBrowser) Running() bool { return b.Manager.Running() }

// Package robots implements the optional robots.txt gate consulted
// before a scrape is dispatched. It is off by default; storefront
// robots files disallow product pages for generic agents, so the gate
// is mainly useful for self-hosted test targets.
package robots

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const agent = "marketscrape"

type hostEntry struct {
	data    *robotstxt.RobotsData
	fetched time.Time
}

// Checker caches robots.txt per host for an hour. Fetch failures are
// treated as allow-all, matching the crawler convention.
type Checker struct {
	mu      sync.Mutex
	client  *http.Client
	entries map[string]hostEntry
}

func NewChecker() *Checker {
	return &Checker{
		client:  &http.Client{Timeout: 10 * time.Second},
		entries: make(map[string]hostEntry),
	}
}

// Allowed reports whether the product URL may be fetched under the
// host's robots policy.
func (c *Checker) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := c.robotsFor(ctx, u)
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, agent)
}

func (c *Checker) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	c.mu.Lock()
	e, ok := c.entries[u.Host]
	c.mu.Unlock()
	if ok && time.Since(e.fetched) < time.Hour {
		return e.data
	}

	data, err := fetchRobots(ctx, c.client, u)
	if err != nil {
		data = nil
	}

	c.mu.Lock()
	c.entries[u.Host] = hostEntry{data: data, fetched: time.Now()}
	c.mu.Unlock()
	return data
}

func fetchRobots(ctx context.Context, client *http.Client, base *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := &url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   "/robots.txt",
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", agent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("non-200 robots.txt")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}

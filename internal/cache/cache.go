// Package cache stores successful scrape results keyed by product
// fingerprint. The default backend is in-memory; a Redis backend can
// be selected so multiple instances share one cache.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketscrape/internal/extract"
)

// Store is the cache contract used by the engine. Implementations
// must never return an entry past its expiry.
type Store interface {
	Get(ctx context.Context, fp extract.Fingerprint) (*extract.Product, bool)
	Set(ctx context.Context, fp extract.Fingerprint, p *extract.Product)
	Size(ctx context.Context) int
}

type entry struct {
	product *extract.Product
	expiry  time.Time
}

// Memory is a TTL cache bounded by maxItems. Expired entries are
// purged lazily on every operation under a single lock; when the
// store outgrows the bound, the entries closest to expiry go first.
type Memory struct {
	mu       sync.Mutex
	store    map[extract.Fingerprint]entry
	ttl      time.Duration
	maxItems int
}

func NewMemory(ttl time.Duration, maxItems int) *Memory {
	return &Memory{
		store:    make(map[extract.Fingerprint]entry),
		ttl:      ttl,
		maxItems: maxItems,
	}
}

// purge removes expired entries and then evicts oldest-by-expiry
// entries until the store is within bounds. Callers hold mu.
func (m *Memory) purge(now time.Time) {
	for k, e := range m.store {
		if e.expiry.Before(now) {
			delete(m.store, k)
		}
	}

	if len(m.store) <= m.maxItems {
		return
	}
	type kv struct {
		key    extract.Fingerprint
		expiry time.Time
	}
	ordered := make([]kv, 0, len(m.store))
	for k, e := range m.store {
		ordered = append(ordered, kv{k, e.expiry})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].expiry.Before(ordered[j].expiry) })
	for _, item := range ordered[:len(m.store)-m.maxItems] {
		delete(m.store, item.key)
	}
}

func (m *Memory) Get(_ context.Context, fp extract.Fingerprint) (*extract.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.purge(now)

	e, ok := m.store[fp]
	if !ok {
		return nil, false
	}
	if e.expiry.Before(now) {
		delete(m.store, fp)
		return nil, false
	}
	return e.product, true
}

func (m *Memory) Set(_ context.Context, fp extract.Fingerprint, p *extract.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.store[fp] = entry{product: p, expiry: now.Add(m.ttl)}
	m.purge(now)
}

func (m *Memory) Size(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purge(time.Now())
	return len(m.store)
}

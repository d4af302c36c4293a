package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"marketscrape/internal/extract"
)

const redisPrefix = "marketscrape:cache:"

// Redis backs the cache with a shared Redis instance so a fleet of
// API nodes serves a single cache. Expiry is delegated to Redis key
// TTLs; maxItems is not enforced here.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opt), ttl: ttl}, nil
}

func key(fp extract.Fingerprint) string {
	return redisPrefix + fp.Country + ":" + fp.ASIN
}

func (r *Redis) Get(ctx context.Context, fp extract.Fingerprint) (*extract.Product, bool) {
	raw, err := r.client.Get(ctx, key(fp)).Bytes()
	if err != nil {
		return nil, false
	}
	var p extract.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (r *Redis) Set(ctx context.Context, fp extract.Fingerprint, p *extract.Product) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	r.client.Set(ctx, key(fp), raw, r.ttl)
}

// Size counts live cache keys with a prefix scan. SCAN keeps this
// from blocking Redis the way KEYS would; the result feeds a gauge,
// so an approximate count during concurrent writes is fine.
func (r *Redis) Size(ctx context.Context) int {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisPrefix+"*", 512).Result()
		if err != nil {
			return count
		}
		count += len(keys)
		if next == 0 {
			return count
		}
		cursor = next
	}
}

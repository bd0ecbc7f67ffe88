// Package cache stores synthesized queries in Redis so repeated questions skip the
// query model.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/text/unicode/norm"

	"github.com/cloo-solutions/mathbot/internal/domain"
)

const keyPrefix = "mathbot:query:"

// Connect opens a Redis client from a redis:// URL and checks it with PING.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// QueryCache keeps successful query syntheses for a fixed TTL.
type QueryCache struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

func NewQueryCache(rdb goredis.Cmdable, ttl time.Duration) *QueryCache {
	return &QueryCache{rdb: rdb, ttl: ttl}
}

// Key identifies a question asked against one graph version. Questions that only
// differ in whitespace, case or Unicode composition share a key.
func Key(namespace, graphVersion, question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(norm.NFC.String(question)), " "))
	h := sha256.New()
	for _, part := range []string{namespace, graphVersion, normalized} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached query for key. A miss is (zero, false, nil).
func (c *QueryCache) Get(ctx context.Context, key string) (domain.SynthesizedQuery, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.SynthesizedQuery{}, false, nil
	}
	if err != nil {
		return domain.SynthesizedQuery{}, false, fmt.Errorf("redis get: %w", err)
	}

	var q domain.SynthesizedQuery
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.SynthesizedQuery{}, false, fmt.Errorf("decode cached query: %w", err)
	}
	return q, true, nil
}

// Set stores q under key. Failed syntheses are not cached.
func (c *QueryCache) Set(ctx context.Context, key string, q domain.SynthesizedQuery) error {
	if q.Failed() {
		return nil
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

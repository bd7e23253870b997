package geocode

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	coregeo "github.com/kilianp07/crisistriage/core/geocode"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/infra/logger"
)

const keyPrefix = "geocode:"

// Cached stores successful lookups of the wrapped geocoder in redis.
// Unresolved locations and failures are never cached.
type Cached struct {
	next coregeo.Geocoder
	rdb  redis.UniversalClient
	ttl  time.Duration
	log  logger.Logger
}

var _ coregeo.Geocoder = (*Cached)(nil)

// NewRedisClient connects to the redis instance at url (redis://host:port/db).
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewCached wraps next with a redis cache.
func NewCached(next coregeo.Geocoder, rdb redis.UniversalClient, ttl time.Duration, log logger.Logger) *Cached {
	if log == nil {
		log = logger.New("geocode_cache")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(text string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(text))))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Geocode serves text from the cache or delegates to the wrapped geocoder.
func (c *Cached) Geocode(ctx context.Context, text string) (model.Location, error) {
	key := cacheKey(text)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var loc model.Location
		if err := json.Unmarshal(raw, &loc); err == nil {
			loc.RawText = text
			return loc, nil
		}
		c.log.Warnf("dropping unreadable cache entry %s", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warnf("geocode cache read: %v", err)
	}

	loc, err := c.next.Geocode(ctx, text)
	if err != nil || !loc.IsGeocoded {
		return loc, err
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return loc, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warnf("geocode cache write: %v", err)
	}
	return loc, nil
}

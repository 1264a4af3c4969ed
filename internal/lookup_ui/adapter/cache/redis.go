// Package cache keeps rates API responses in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/langowen/feelookup/internal/entities"
	"github.com/langowen/feelookup/internal/lookup_ui/metrics"
	"github.com/langowen/feelookup/internal/lookup_ui/service"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTTL       = 24 * time.Hour
	defaultNamespace = "rates"

	statsFieldHits   = "hits"
	statsFieldMisses = "misses"
)

func InitClient(ctx context.Context, options *redis.Options) (*redis.Client, error) {
	const op = "cache.redis.InitClient"

	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		_ = redisClient.Close()
		return nil, errors.Wrap(err, op)
	}

	return redisClient, nil
}

// RatesClient decorates a service.RatesClient with a Redis cache.
// A nil Redis client turns it into a pass-through.
type RatesClient struct {
	inner     service.RatesClient
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

func NewRatesClient(rdb *redis.Client, ttl time.Duration, inner service.RatesClient, namespace string) *RatesClient {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &RatesClient{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *RatesClient) GetRates(ctx context.Context, state, procedureCode string) ([]entities.Rate, error) {
	if c.rdb == nil {
		return c.inner.GetRates(ctx, state, procedureCode)
	}

	key := c.cacheKey(state, procedureCode)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entities.Rate
		if err := json.Unmarshal(b, &out); err == nil && out != nil {
			c.recordLookup(ctx, statsFieldHits)
			c.recordAccess(ctx, state, procedureCode)
			return out, nil
		}
		slog.Warn("dropping corrupted cache entry", "key", key)
		_ = c.rdb.Del(ctx, key).Err()
	} else if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("cache read failed", "key", key, "error", err.Error())
	}
	c.recordLookup(ctx, statsFieldMisses)

	out, err := c.inner.GetRates(ctx, state, procedureCode)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entities.Rate{}
	}

	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.Warn("cache write failed", "key", key, "error", err.Error())
		}
	}
	c.recordAccess(ctx, state, procedureCode)

	return out, nil
}

// Stats reports the most requested state/procedure pairs and the cache hit
// rate. Without Redis there is nothing recorded and the report is empty.
func (c *RatesClient) Stats(ctx context.Context) (*entities.Stats, error) {
	const op = "cache.redis.Stats"

	if c.rdb == nil {
		return entities.EmptyStats(), nil
	}

	top, err := c.rdb.ZRevRangeWithScores(ctx, c.popularKey(), 0, entities.PopularRatesLimit-1).Result()
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	counters, err := c.rdb.HGetAll(ctx, c.statsKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	stats := entities.EmptyStats()
	for _, z := range top {
		state, procedureCode, ok := splitMember(fmt.Sprint(z.Member))
		if !ok {
			slog.Warn("skipping malformed popularity entry", "member", z.Member)
			continue
		}
		stats.PopularRates = append(stats.PopularRates, entities.PopularRate{
			State:         state,
			ProcedureCode: procedureCode,
			Accesses:      int64(z.Score),
		})
	}

	hits, _ := strconv.ParseInt(counters[statsFieldHits], 10, 64)
	misses, _ := strconv.ParseInt(counters[statsFieldMisses], 10, 64)
	stats.CacheStats = entities.NewCacheStats(hits, misses)

	return stats, nil
}

func (c *RatesClient) recordLookup(ctx context.Context, field string) {
	metrics.CacheLookups.WithLabelValues(field).Inc()

	if err := c.rdb.HIncrBy(ctx, c.statsKey(), field, 1).Err(); err != nil {
		slog.Warn("stats counter update failed", "field", field, "error", err.Error())
	}
}

func (c *RatesClient) recordAccess(ctx context.Context, state, procedureCode string) {
	if err := c.rdb.ZIncrBy(ctx, c.popularKey(), 1, member(state, procedureCode)).Err(); err != nil {
		slog.Warn("popularity update failed", "state", state, "procedure_code", procedureCode, "error", err.Error())
	}
}

func (c *RatesClient) cacheKey(state, procedureCode string) string {
	return fmt.Sprintf("%s:%s", c.namespace, member(state, procedureCode))
}

func (c *RatesClient) popularKey() string {
	return c.namespace + ":popular"
}

func (c *RatesClient) statsKey() string {
	return c.namespace + ":stats"
}

func member(state, procedureCode string) string {
	return url.QueryEscape(state) + ":" + url.QueryEscape(procedureCode)
}

func splitMember(m string) (string, string, bool) {
	rawState, rawCode, ok := strings.Cut(m, ":")
	if !ok {
		return "", "", false
	}
	state, err := url.QueryUnescape(rawState)
	if err != nil {
		return "", "", false
	}
	procedureCode, err := url.QueryUnescape(rawCode)
	if err != nil {
		return "", "", false
	}
	return state, procedureCode, true
}

// Package matchcache stores duplicate detection results in Redis, keyed by a
// fingerprint of the leads and scoring settings they were computed from.
package matchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

const (
	keyPrefix  = "dedupe:v1"
	defaultTTL = 10 * time.Minute
)

// RedisCache is an explicit, caller-owned cache for DetectAll results.
type RedisCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	logger *logging.Logger
}

// NewRedisCache wraps client. A non-positive ttl falls back to ten minutes.
func NewRedisCache(client *redis.Client, ttl time.Duration, tracer trace.Tracer, logger *logging.Logger) *RedisCache {
	if client == nil {
		panic("matchcache: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("landlead.internal.matchcache")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisCache{redis: client, ttl: ttl, tracer: tracer, logger: logger}
}

// Get returns cached matches for key. Any failure is logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]dedupe.DuplicateMatch, bool) {
	ctx, span := c.tracer.Start(ctx, "matchcache.get", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
			c.logger.Warn("match cache read failed", "key", key, "error", err)
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false
	}

	var matches []dedupe.DuplicateMatch
	if err := json.Unmarshal(data, &matches); err != nil {
		span.RecordError(err)
		c.logger.Warn("match cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return matches, true
}

// Set stores matches under key with the configured TTL. Failures are logged only.
func (c *RedisCache) Set(ctx context.Context, key string, matches []dedupe.DuplicateMatch) {
	ctx, span := c.tracer.Start(ctx, "matchcache.set", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if matches == nil {
		matches = []dedupe.DuplicateMatch{}
	}
	data, err := json.Marshal(matches)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("match cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		c.logger.Warn("match cache write failed", "key", key, "error", err)
	}
}

// InvalidateOrg drops every cached result for the org.
func (c *RedisCache) InvalidateOrg(ctx context.Context, orgID string) {
	ctx, span := c.tracer.Start(ctx, "matchcache.invalidate", trace.WithAttributes(attribute.String("org_id", orgID)))
	defer span.End()

	iter := c.redis.Scan(ctx, 0, fmt.Sprintf("%s:%s:*", keyPrefix, orgID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		c.logger.Warn("match cache scan failed", "org_id", orgID, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		c.logger.Warn("match cache invalidate failed", "org_id", orgID, "error", err)
	}
}

// Key builds the cache key for an org and fingerprint.
func Key(orgID, fingerprint string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, orgID, fingerprint)
}

// KeyFor fingerprints the org's leads and settings into a cache key.
func KeyFor(orgID string, all []leads.Lead, opts dedupe.Options, policy dedupe.Policy) string {
	return Key(orgID, Fingerprint(all, opts, policy))
}

type leadStamp struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fingerprint hashes the lead ids and update times together with the options
// and policy, so any edit or settings change yields a new key. Lead order
// does not matter.
func Fingerprint(all []leads.Lead, opts dedupe.Options, policy dedupe.Policy) string {
	stamps := make([]leadStamp, len(all))
	for i, l := range all {
		stamps[i] = leadStamp{ID: l.ID, UpdatedAt: l.UpdatedAt.UTC()}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].ID < stamps[j].ID })

	payload, _ := json.Marshal(struct {
		Leads   []leadStamp    `json:"leads"`
		Options dedupe.Options `json:"options"`
		Policy  dedupe.Policy  `json:"policy"`
	}{stamps, opts, policy})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

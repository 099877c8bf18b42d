// Package bootstrap wires the runtime dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/landlead-crm/internal/compliance"
	appconfig "github.com/wolfman30/landlead-crm/internal/config"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/matchcache"
	"github.com/wolfman30/landlead-crm/internal/observability/metrics"
	"github.com/wolfman30/landlead-crm/internal/resolution"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Postgres bundles the pgx pool used by the lead repository and a
// database/sql handle over the same pool for the audit service.
type Postgres struct {
	Pool *pgxpool.Pool
	DB   *sql.DB
}

// Close releases both handles.
func (p *Postgres) Close() {
	if p == nil {
		return
	}
	_ = p.DB.Close()
	p.Pool.Close()
}

// BuildPostgres connects to DATABASE_URL. It returns nil, nil when no URL is set.
func BuildPostgres(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Postgres, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("postgres connected")
	return &Postgres{Pool: pool, DB: stdlib.OpenDBFromPool(pool)}, nil
}

// BuildLeadRepository uses Postgres when connected and memory otherwise.
func BuildLeadRepository(pg *Postgres, logger *logging.Logger) leads.Repository {
	if pg == nil {
		if logger != nil {
			logger.Warn("DATABASE_URL not set; using in-memory lead repository")
		}
		return leads.NewInMemoryRepository()
	}
	return leads.NewPostgresRepository(pg.Pool)
}

// BuildResolutionService wires the duplicate service with whichever optional
// collaborators are available: the Redis match cache and the SQL audit trail.
func BuildResolutionService(cfg *appconfig.Config, repo leads.Repository, redisClient *redis.Client, pg *Postgres, m *metrics.DedupeMetrics, logger *logging.Logger) (*resolution.Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config required")
	}
	policy := cfg.DedupePolicy()
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap: invalid dedupe policy: %w", err)
	}

	svcCfg := resolution.Config{
		Repo:    repo,
		Policy:  policy,
		Metrics: m,
		Logger:  logger,
	}
	if redisClient != nil && cfg.MatchCacheEnabled {
		svcCfg.Cache = matchcache.NewRedisCache(redisClient, cfg.MatchCacheTTL, nil, logger)
		svcCfg.CacheKey = matchcache.KeyFor
	}
	if pg != nil {
		svcCfg.Audit = compliance.NewAuditService(pg.DB)
	}
	return resolution.NewService(svcCfg), nil
}

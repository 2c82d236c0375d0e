package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/signal/config"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	pkgredis "github.com/mathieupelo/sentiment-reddit/pkg/redis"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// cachedClassifierRepository decorates a ClassifierRepository with a
// two-tier score cache: an in-process go-cache first, Redis second. Post
// text is immutable, so a cached score stays valid for the classifier that
// produced it and re-sweeps skip repeated API calls.
type cachedClassifierRepository struct {
	inner       ClassifierRepository
	redisClient *pkgredis.Client
	memory      *cache.Cache
	redisTTL    time.Duration
	prefix      string
	logger      *logger.Logger
}

// NewCachedClassifierRepository wraps inner with the score cache.
// redisClient may be nil, in which case only the in-process tier is used.
func NewCachedClassifierRepository(inner ClassifierRepository, redisClient *pkgredis.Client, cfg config.ClassifierCache, log *logger.Logger) (ClassifierRepository, error) {
	memTTL := 30 * time.Minute
	if cfg.TTL != "" {
		parsed, err := time.ParseDuration(cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid classifier cache ttl %q: %w", cfg.TTL, err)
		}
		memTTL = parsed
	}

	redisTTL := 7 * 24 * time.Hour
	if cfg.RedisTTL != "" {
		parsed, err := time.ParseDuration(cfg.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid classifier cache redis_ttl %q: %w", cfg.RedisTTL, err)
		}
		redisTTL = parsed
	}

	prefix := cfg.RedisIndex
	if prefix == "" {
		prefix = "sentiment:score"
	}

	return &cachedClassifierRepository{
		inner:       inner,
		redisClient: redisClient,
		memory:      cache.New(memTTL, 2*memTTL),
		redisTTL:    redisTTL,
		prefix:      prefix,
		logger:      log,
	}, nil
}

func (r *cachedClassifierRepository) Name() string {
	return r.inner.Name()
}

func (r *cachedClassifierRepository) Classify(ctx context.Context, text string) (*dto.TextSentiment, error) {
	key := r.cacheKey(text)

	if cached, found := r.memory.Get(key); found {
		result := cached.(dto.TextSentiment)
		return &result, nil
	}

	if result, found := r.getFromRedis(ctx, key); found {
		r.memory.SetDefault(key, *result)
		return result, nil
	}

	result, err := r.inner.Classify(ctx, text)
	if err != nil || result == nil {
		return result, err
	}

	r.memory.SetDefault(key, *result)
	r.setInRedis(ctx, key, result)

	return result, nil
}

func (r *cachedClassifierRepository) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(r.inner.Name() + "|" + text))
	return r.prefix + ":" + hex.EncodeToString(sum[:])
}

// Redis errors degrade to cache misses; the classifier itself remains the
// source of truth.
func (r *cachedClassifierRepository) getFromRedis(ctx context.Context, key string) (*dto.TextSentiment, bool) {
	if r.redisClient == nil {
		return nil, false
	}

	raw, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("Failed to read classifier cache", logger.ErrorField(err))
		}
		return nil, false
	}

	var result dto.TextSentiment
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		r.logger.Warn("Failed to decode cached classifier score", logger.ErrorField(err))
		return nil, false
	}

	return &result, true
}

func (r *cachedClassifierRepository) setInRedis(ctx context.Context, key string, result *dto.TextSentiment) {
	if r.redisClient == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := r.redisClient.Set(ctx, key, raw, r.redisTTL).Err(); err != nil {
		r.logger.Warn("Failed to write classifier cache", logger.ErrorField(err))
	}
}

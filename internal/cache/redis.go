package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AnswerCache handles Redis-based semantic caching of query answers.
// Keys are derived from quantized query embeddings, so paraphrases that
// hash to the same quantized vector reuse the cached answer.
type AnswerCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	stats  *cacheStats
}

// cacheStats tracks cache performance metrics
type cacheStats struct {
	hits   int64
	misses int64
}

// NewAnswerCache creates a new Redis-based answer cache
func NewAnswerCache(config *Config, logger *zap.Logger) (*AnswerCache, error) {
	// Parse Redis URL
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	cache := &AnswerCache{
		client: client,
		config: config,
		logger: logger,
		stats:  &cacheStats{},
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cache.ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Answer cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

// ping tests the Redis connection
func (ac *AnswerCache) ping(ctx context.Context) error {
	_, err := ac.client.Ping(ctx).Result()
	return err
}

// SearchSimilar looks up a cached answer for a query embedding
func (ac *AnswerCache) SearchSimilar(ctx context.Context, embedding []float32, options *SearchOptions) (*SearchResult, error) {
	if options == nil {
		options = &SearchOptions{}
	}
	minSimilarity := ac.effectiveMinSimilarity(options)

	start := time.Now()

	cacheKey := ac.generateEmbeddingKey(embedding, options.DatasetID)

	cachedData, err := ac.client.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		// Cache miss
		ac.stats.misses++
		ac.logger.Debug("Cache miss", zap.String("key", cacheKey))
		return &SearchResult{CacheHit: false}, nil
	} else if err != nil {
		ac.logger.Error("Cache lookup failed", zap.Error(err))
		return &SearchResult{CacheHit: false}, nil
	}

	var cached CachedAnswer
	if err := json.Unmarshal([]byte(cachedData), &cached); err != nil {
		ac.logger.Error("Failed to unmarshal cached answer", zap.Error(err))
		// Delete corrupted cache entry
		ac.client.Del(ctx, cacheKey)
		return &SearchResult{CacheHit: false}, nil
	}

	// Check if cached result meets criteria
	if cached.Similarity < minSimilarity {
		ac.stats.misses++
		return &SearchResult{CacheHit: false}, nil
	}

	if options.IntentFilter != "" && cached.Intent != options.IntentFilter {
		ac.stats.misses++
		return &SearchResult{CacheHit: false}, nil
	}

	// Cache hit!
	ac.stats.hits++
	duration := time.Since(start)

	ac.logger.Debug("Cache hit",
		zap.String("key", cacheKey),
		zap.Float32("similarity", cached.Similarity),
		zap.Duration("duration", duration))

	return &SearchResult{
		Answer:   &cached,
		CacheHit: true,
	}, nil
}

// Store caches an answer under its query embedding
func (ac *AnswerCache) Store(ctx context.Context, embedding []float32, answer *CachedAnswer) error {
	cacheKey := ac.generateEmbeddingKey(embedding, answer.DatasetID)

	answer.CachedAt = time.Now()
	answer.TTL = int64(ac.config.DefaultTTL.Seconds())

	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("failed to marshal answer for caching: %w", err)
	}

	err = ac.client.Set(ctx, cacheKey, data, ac.config.DefaultTTL).Err()
	if err != nil {
		ac.logger.Error("Failed to cache answer", zap.Error(err))
		return fmt.Errorf("failed to cache answer: %w", err)
	}

	ac.logger.Debug("Answer cached successfully",
		zap.String("key", cacheKey),
		zap.String("intent", answer.Intent))

	return nil
}

// StoreBatch caches multiple answers efficiently using Redis pipeline
func (ac *AnswerCache) StoreBatch(ctx context.Context, embeddings [][]float32, answers []*CachedAnswer) error {
	if len(embeddings) != len(answers) {
		return fmt.Errorf("embeddings and answers length mismatch")
	}

	if len(answers) == 0 {
		return nil
	}

	pipe := ac.client.Pipeline()

	for i, answer := range answers {
		cacheKey := ac.generateEmbeddingKey(embeddings[i], answer.DatasetID)

		answer.CachedAt = time.Now()
		answer.TTL = int64(ac.config.DefaultTTL.Seconds())

		data, err := json.Marshal(answer)
		if err != nil {
			ac.logger.Error("Failed to marshal answer for batch caching", zap.Error(err))
			continue
		}

		pipe.Set(ctx, cacheKey, data, ac.config.DefaultTTL)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		ac.logger.Error("Batch cache operation failed", zap.Error(err))
		return fmt.Errorf("batch cache operation failed: %w", err)
	}

	ac.logger.Debug("Batch cache operation completed",
		zap.Int("cached_answers", len(answers)))

	return nil
}

// GetStats returns cache performance statistics
func (ac *AnswerCache) GetStats(ctx context.Context) (*CacheStats, error) {
	info, err := ac.client.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &CacheStats{
		Hits:   ac.stats.hits,
		Misses: ac.stats.misses,
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	// Parse memory usage from Redis info
	lines := strings.Split(info, "\r\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "used_memory:") {
			if memStr := strings.TrimPrefix(line, "used_memory:"); memStr != "" {
				if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
					stats.MemoryUsage = mem
				}
			}
		}
	}

	keys, err := ac.client.DBSize(ctx).Result()
	if err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes all cached answers
func (ac *AnswerCache) Clear(ctx context.Context) error {
	pattern := ac.config.KeyPrefix + "*"

	// Use SCAN to find all keys with our prefix
	iter := ac.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	// Delete keys in batches
	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		if err := ac.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			ac.logger.Error("Failed to delete cache keys", zap.Error(err))
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	ac.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (ac *AnswerCache) Close() error {
	if ac.client != nil {
		return ac.client.Close()
	}
	return nil
}

// generateEmbeddingKey creates a cache key from an embedding vector
// effectiveMinSimilarity applies the configured floor when the caller
// leaves MinSimilarity unset
func (ac *AnswerCache) effectiveMinSimilarity(options *SearchOptions) float32 {
	if options == nil || options.MinSimilarity <= 0 {
		return ac.config.MinSimilarity
	}
	return options.MinSimilarity
}

func (ac *AnswerCache) generateEmbeddingKey(embedding []float32, datasetID string) string {
	hasher := sha256.New()

	for _, val := range embedding {
		// Quantize to reduce precision and improve cache hit rate
		quantized := math.Round(float64(val)*1000) / 1000
		hasher.Write([]byte(fmt.Sprintf("%.3f,", quantized)))
	}
	hasher.Write([]byte(datasetID))

	hash := hex.EncodeToString(hasher.Sum(nil))
	return fmt.Sprintf("%s:qry:%s", ac.config.KeyPrefix, hash[:16])
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}

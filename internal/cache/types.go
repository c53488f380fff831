package cache

import (
	"time"
)

// CachedAnswer represents a cached query answer with its embedding
type CachedAnswer struct {
	Query      string    `json:"query"`
	DatasetID  string    `json:"dataset_id"`
	Intent     string    `json:"intent"`
	Answer     string    `json:"answer"`
	Embedding  []float32 `json:"embedding"`
	Similarity float32   `json:"similarity"`
	CachedAt   time.Time `json:"cached_at"`
	TTL        int64     `json:"ttl"`
}

// SearchResult represents a cache search result
type SearchResult struct {
	Answer   *CachedAnswer `json:"answer"`
	CacheHit bool          `json:"cache_hit"`
}

// CacheStats represents cache performance statistics
type CacheStats struct {
	Hits            int64   `json:"hits"`
	Misses          int64   `json:"misses"`
	HitRate         float64 `json:"hit_rate"`
	TotalKeys       int64   `json:"total_keys"`
	MemoryUsage     int64   `json:"memory_usage_bytes"`
	AvgResponseTime float64 `json:"avg_response_time_ms"`
}

// Config contains cache configuration
type Config struct {
	RedisURL        string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns    int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	DefaultTTL      time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix       string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	MinSimilarity   float32       `yaml:"min_similarity" mapstructure:"min_similarity"`
}

// SearchOptions contains options for cache search
type SearchOptions struct {
	MinSimilarity float32 `json:"min_similarity"`
	DatasetID     string  `json:"dataset_id,omitempty"`
	IntentFilter  string  `json:"intent_filter,omitempty"`
}

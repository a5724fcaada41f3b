package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option is a function that configures a Config.
//
// Option 是一个配置Config的函数。
type Option func(*Config)

// WithName sets the cache name.
//
// WithName 设置缓存名称。
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithMaxEntries sets the maximum number of series in the cache.
// If set to 0, there is no limit on the number of series.
//
// WithMaxEntries 设置缓存中的最大序列数。
// 如果设置为0，则序列数量没有限制。
//
// Parameters:
//   - count: The maximum number of series
//
// Returns:
//   - Option: A configuration option
func WithMaxEntries(count int) Option {
	return func(c *Config) {
		c.MaxEntries = count
	}
}

// WithStaleTTL sets how long a series is served before it is fetched again.
// If set to 0, series never go stale.
//
// WithStaleTTL 设置序列在重新请求之前可被使用的时长。
// 如果设置为0，则序列永不过期。
//
// Parameters:
//   - ttl: The freshness duration
//
// Returns:
//   - Option: A configuration option
func WithStaleTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.StaleTTL = ttl
	}
}

// WithCleanupInterval sets how often stale series are removed.
//
// WithCleanupInterval 设置清理过期序列的频率。
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.CleanupInterval = interval
	}
}

// WithEviction sets the eviction policy.
// Valid values: "lru", "fifo"
//
// WithEviction 设置淘汰策略。
// 有效值："lru"、"fifo"
func WithEviction(policy string) Option {
	return func(c *Config) {
		c.EvictionPolicy = policy
	}
}

// WithShards sets the number of storage shards.
// The value must be a power of 2.
//
// WithShards 设置存储分片数量，该值必须是2的幂。
func WithShards(count int) Option {
	return func(c *Config) {
		c.ShardCount = count
	}
}

// WithPrometheus registers the cache collectors on reg under namespace.
//
// WithPrometheus 以namespace为前缀在reg上注册缓存采集器。
func WithPrometheus(reg prometheus.Registerer, namespace string) Option {
	return func(c *Config) {
		c.Registerer = reg
		c.MetricsNamespace = namespace
	}
}

// WithLogger sets the logger for cache events.
//
// WithLogger 设置缓存事件日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

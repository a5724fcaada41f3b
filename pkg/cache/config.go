package cache

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/internal/eviction"
)

// Config defines the configuration options for a fetch cache instance.
// It controls how many series are kept, how long they stay fresh and how
// cache activity is reported.
//
// Config 定义请求缓存实例的配置选项。
// 它控制保留多少序列、序列保持新鲜的时长以及缓存活动的上报方式。
type Config struct {
	// Name of the cache instance, used for logging
	// 缓存实例的名称，用于日志记录
	Name string `json:"name" yaml:"name"`

	// MaxEntries is the maximum number of series the cache can hold
	// If set to 0, there is no limit on the number of series
	//
	// MaxEntries 是缓存可以容纳的最大序列数
	// 如果设置为0，则序列数量没有限制
	MaxEntries int `json:"max_entries" yaml:"max_entries"`

	// StaleTTL is how long a series is served before it is fetched again
	// If set to 0, series never go stale
	//
	// StaleTTL 是序列在重新请求之前可被使用的时长
	// 如果设置为0，则序列永不过期
	StaleTTL time.Duration `json:"stale_ttl" yaml:"stale_ttl"`

	// CleanupInterval is the interval at which stale series are removed
	//
	// CleanupInterval 是清理过期序列的时间间隔
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`

	// EvictionPolicy determines which series to evict when the cache is full
	// Valid values: "lru", "fifo"
	//
	// EvictionPolicy 决定缓存已满时淘汰哪些序列
	// 有效值："lru"、"fifo"
	EvictionPolicy string `json:"eviction_policy" yaml:"eviction_policy"`

	// ShardCount is the number of storage shards, a power of 2
	//
	// ShardCount 是存储分片数量，须为2的幂
	ShardCount int `json:"shard_count" yaml:"shard_count"`

	// MetricsNamespace prefixes the Prometheus metric names
	//
	// MetricsNamespace 是Prometheus指标名称的前缀
	MetricsNamespace string `json:"metrics_namespace" yaml:"metrics_namespace"`

	// Registerer receives the Prometheus collectors; nil disables them
	//
	// Registerer 用于注册Prometheus采集器，为nil时不导出
	Registerer prometheus.Registerer `json:"-" yaml:"-"`

	// Logger receives cache events; nil discards them
	//
	// Logger 接收缓存事件日志，为nil时丢弃
	Logger *zap.Logger `json:"-" yaml:"-"`
}

// NewDefaultConfig returns a Config with sensible default values.
//
// NewDefaultConfig 返回具有合理默认值的Config。
//
// Returns:
//   - *Config: A new configuration instance with default values
func NewDefaultConfig() *Config {
	return &Config{
		Name:            "products",
		MaxEntries:      256,
		StaleTTL:        5 * time.Minute,
		CleanupInterval: time.Minute,
		EvictionPolicy:  eviction.LRU,
		ShardCount:      16,
	}
}

// Validate checks if the configuration is valid.
//
// Validate 检查配置是否有效。
//
// Returns:
//   - error: An error if the configuration is invalid, nil otherwise
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cache name cannot be empty")
	}

	if c.MaxEntries < 0 {
		return fmt.Errorf("max entries must be non-negative")
	}

	if c.StaleTTL < 0 {
		return fmt.Errorf("stale ttl must be non-negative")
	}

	if c.ShardCount <= 0 {
		return fmt.Errorf("shard count must be positive")
	}

	// Check if ShardCount is a power of 2
	// 检查ShardCount是否为2的幂
	if (c.ShardCount & (c.ShardCount - 1)) != 0 {
		return fmt.Errorf("shard count must be a power of 2")
	}

	switch c.EvictionPolicy {
	case eviction.LRU, eviction.FIFO:
	default:
		return fmt.Errorf("invalid eviction policy: %s", c.EvictionPolicy)
	}

	if c.StaleTTL > 0 && c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive when stale ttl is set")
	}

	return nil
}

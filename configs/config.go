// Package configs provides configuration structures and utilities for hcatalog.
// It offers mechanisms for loading, validating, and saving configuration from
// JSON and YAML files, and maps the sections onto the components they configure.
//
// Package configs 提供hcatalog的配置结构和工具。
// 它提供从JSON和YAML文件加载、验证和保存配置的机制，并将各配置段映射到对应组件。
package configs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Humphrey-He/hcatalog/internal/eviction"
	"github.com/Humphrey-He/hcatalog/pkg/cache"
	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
)

// Config represents the complete configuration for hcatalog.
// It is organized into sections for the product API, the fetch cache,
// query input handling, the HTTP server, metrics and logging.
//
// Config 表示hcatalog的完整配置。
// 按商品接口、请求缓存、查询输入、HTTP服务、指标和日志分段组织。
type Config struct {
	// API configures the product listing API the catalog reads from
	// API 配置目录读取的商品列表接口
	API APIConfig `json:"api" yaml:"api" mapstructure:"api"`

	// Cache configures the fetch cache
	// Cache 配置请求缓存
	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`

	// Query configures parameter defaults and input debouncing
	// Query 配置参数默认值和输入防抖
	Query QueryConfig `json:"query" yaml:"query" mapstructure:"query"`

	// Server configures the HTTP front end
	// Server 配置HTTP前端
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`

	// Metrics configures Prometheus export
	// Metrics 配置Prometheus导出
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Log configures the logging behavior
	// Log 配置日志行为
	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`

	// Extensions configures optional features like hot reloading
	// Extensions 配置可选功能，如热重载
	Extensions ExtensionsConfig `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// APIConfig contains settings for the product listing API.
//
// APIConfig 包含商品列表接口的设置。
type APIConfig struct {
	// BaseURL is the API origin; it is required
	// BaseURL 是接口地址，必填
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each request
	// Timeout 限制单次请求耗时
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RateLimit is the sustained number of requests per second (0 = unlimited)
	// RateLimit 是每秒持续请求数（0 = 不限制）
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// Burst is the largest burst allowed above RateLimit
	// Burst 是超过RateLimit时允许的最大突发量
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`
}

// CacheConfig contains settings for the fetch cache.
// These settings control capacity limits and expiration.
//
// CacheConfig 包含请求缓存的设置，控制容量限制和过期策略。
type CacheConfig struct {
	// Name is the identifier for this cache instance
	// Name 是此缓存实例的标识符
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// MaxEntries is the maximum number of series the cache can hold (0 = unlimited)
	// MaxEntries 是缓存可以容纳的最大序列数（0 = 无限制）
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`

	// StaleTTL is how long a series stays cached after its last load (0 = forever)
	// StaleTTL 是序列在最后一次加载后的保留时间（0 = 永久）
	StaleTTL time.Duration `json:"stale_ttl" yaml:"stale_ttl" mapstructure:"stale_ttl"`

	// CleanupInterval is how often stale series are removed
	// CleanupInterval 是清除过期序列的频率
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" mapstructure:"cleanup_interval"`

	// Eviction determines the eviction algorithm ("lru", "fifo")
	// Eviction 确定淘汰算法（"lru"、"fifo"）
	Eviction string `json:"eviction" yaml:"eviction" mapstructure:"eviction"`

	// ShardCount is the number of shards for reducing lock contention (must be power of 2)
	// ShardCount 是用于减少锁竞争的分片数量（必须是2的幂）
	ShardCount int `json:"shard_count" yaml:"shard_count" mapstructure:"shard_count"`
}

// QueryConfig contains settings for query parameters and inputs.
//
// QueryConfig 包含查询参数和输入的设置。
type QueryConfig struct {
	// DefaultLimit is the page size used when a query names none
	// DefaultLimit 是查询未指定时使用的每页数量
	DefaultLimit int `json:"default_limit" yaml:"default_limit" mapstructure:"default_limit"`

	// SearchDebounce is the quiet period before search text is committed
	// SearchDebounce 是搜索文本提交前的静默时间
	SearchDebounce time.Duration `json:"search_debounce" yaml:"search_debounce" mapstructure:"search_debounce"`

	// PriceDebounce is the quiet period before a price range is committed
	// PriceDebounce 是价格区间提交前的静默时间
	PriceDebounce time.Duration `json:"price_debounce" yaml:"price_debounce" mapstructure:"price_debounce"`
}

// ServerConfig contains settings for the HTTP server.
//
// ServerConfig 包含HTTP服务的设置。
type ServerConfig struct {
	// Addr is the listen address
	// Addr 是监听地址
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// CORSOrigins lists the allowed browser origins; empty allows all
	// CORSOrigins 列出允许的浏览器来源，为空时允许所有来源
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins"`

	// ShutdownTimeout bounds graceful shutdown
	// ShutdownTimeout 限制优雅关闭的耗时
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// SessionTTL is how long an idle browse session is kept
	// SessionTTL 是空闲浏览会话的保留时间
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" mapstructure:"session_ttl"`
}

// MetricsConfig contains settings for metrics export.
//
// MetricsConfig 包含指标导出的设置。
type MetricsConfig struct {
	// Enable determines whether Prometheus collectors are registered
	// Enable 确定是否注册Prometheus采集器
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Path is the HTTP path serving the metrics
	// Path 是提供指标的HTTP路径
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Namespace prefixes every metric name
	// Namespace 是所有指标名称的前缀
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
}

// LogConfig contains settings for logging.
// These settings control the logging behavior, including
// log level, format, and output destination.
//
// LogConfig 包含日志记录的设置。
// 这些设置控制日志行为，包括日志级别、格式和输出目的地。
type LogConfig struct {
	// Level sets the minimum log level ("debug", "info", "warn", "error")
	// Level 设置最低日志级别（"debug"、"info"、"warn"、"error"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format specifies the log format ("json", "console")
	// Format 指定日志格式（"json"、"console"）
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output determines where logs are written ("stdout", "stderr", "file")
	// Output 确定日志写入的位置（"stdout"、"stderr"、"file"）
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// FilePath is the path to the log file when Output is "file"
	// FilePath 是当Output为"file"时的日志文件路径
	FilePath string `json:"file_path" yaml:"file_path" mapstructure:"file_path"`
}

// ExtensionsConfig contains settings for extensions.
//
// ExtensionsConfig 包含扩展的设置。
type ExtensionsConfig struct {
	// HotReload contains settings for dynamic configuration reloading
	// HotReload 包含动态配置重新加载的设置
	HotReload HotReloadConfig `json:"hot_reload" yaml:"hot_reload" mapstructure:"hot_reload"`
}

// HotReloadConfig contains settings for hot reloading.
//
// HotReloadConfig 包含热重载的设置。
type HotReloadConfig struct {
	// Enable determines whether hot reloading is active
	// Enable 确定是否启用热重载
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// WatchInterval is how often to poll for changes when file notifications are unavailable
	// WatchInterval 是文件通知不可用时轮询变更的频率
	WatchInterval time.Duration `json:"watch_interval" yaml:"watch_interval" mapstructure:"watch_interval"`
}

// DefaultConfig returns a new Config with default values.
// The API base URL has no default and must be supplied.
//
// DefaultConfig 返回具有默认值的新Config。接口地址没有默认值，必须提供。
//
// Returns:
//   - *Config: A new configuration instance with default values
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout: 10 * time.Second,
			Burst:   1,
		},
		Cache: CacheConfig{
			Name:            "products",
			MaxEntries:      256,
			StaleTTL:        5 * time.Minute,
			CleanupInterval: time.Minute,
			Eviction:        eviction.LRU,
			ShardCount:      16,
		},
		Query: QueryConfig{
			DefaultLimit:   8,
			SearchDebounce: 500 * time.Millisecond,
			PriceDebounce:  500 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{},
			ShutdownTimeout: 10 * time.Second,
			SessionTTL:      30 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enable:    true,
			Path:      "/metrics",
			Namespace: "hcatalog",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Extensions: ExtensionsConfig{
			HotReload: HotReloadConfig{
				Enable:        false,
				WatchInterval: 30 * time.Second,
			},
		},
	}
}

// LoadFromFile loads configuration from a file.
// It supports both YAML and JSON formats, detecting the format from the file extension.
//
// LoadFromFile 从文件加载配置，根据文件扩展名识别YAML或JSON格式。
//
// Parameters:
//   - filename: Path to the configuration file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if loading fails
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(file, strings.TrimPrefix(filepath.Ext(filename), "."))
}

// LoadFromReader loads configuration from an io.Reader.
//
// LoadFromReader 从io.Reader加载配置。
//
// Parameters:
//   - r: The reader providing the configuration data
//   - format: The format of the data ("json", "yaml", or "yml")
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if loading fails
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	config := DefaultConfig()
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(config)
	case "json":
		err = json.NewDecoder(r).Decode(config)
	default:
		return nil, fmt.Errorf("unsupported configuration format: %s", format)
	}

	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file in the format named by its extension.
//
// SaveToFile 将配置保存到文件，格式由扩展名决定。
//
// Parameters:
//   - filename: Path where the configuration will be saved
//
// Returns:
//   - error: An error if saving fails
func (c *Config) SaveToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".yaml", ".yml":
		encoder := yaml.NewEncoder(file)
		defer encoder.Close()
		err = encoder.Encode(c)
	case ".json":
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(c)
	default:
		return fmt.Errorf("unsupported configuration file format: %s", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	return nil
}

// Validate validates the configuration.
// A missing API base URL is reported as errors.ErrMissingBaseURL.
//
// Validate 验证配置。缺少接口地址时返回errors.ErrMissingBaseURL。
//
// Returns:
//   - error: An error describing the validation failure, or nil if valid
func (c *Config) Validate() error {
	// Validate API settings
	// 验证接口设置
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return cerrors.ErrMissingBaseURL
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be non-negative")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be non-negative")
	}
	if c.API.RateLimit > 0 && c.API.Burst < 1 {
		return fmt.Errorf("api.burst must be at least 1 when api.rate_limit is set")
	}

	// Validate cache settings
	// 验证缓存设置
	if c.Cache.Name == "" {
		return fmt.Errorf("cache.name cannot be empty")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be non-negative")
	}
	if c.Cache.StaleTTL < 0 {
		return fmt.Errorf("cache.stale_ttl must be non-negative")
	}
	if c.Cache.StaleTTL > 0 && c.Cache.CleanupInterval < time.Second {
		return fmt.Errorf("cache.cleanup_interval must be at least 1 second")
	}
	if !isPowerOfTwo(c.Cache.ShardCount) {
		return fmt.Errorf("cache.shard_count must be a power of 2")
	}
	switch c.Cache.Eviction {
	case eviction.LRU, eviction.FIFO:
		// 有效策略
	default:
		return fmt.Errorf("cache.eviction must be one of: lru, fifo")
	}

	// Validate query settings
	// 验证查询设置
	if c.Query.DefaultLimit < 1 {
		return fmt.Errorf("query.default_limit must be positive")
	}
	if c.Query.SearchDebounce < 0 || c.Query.PriceDebounce < 0 {
		return fmt.Errorf("query debounce delays must be non-negative")
	}

	// Validate server settings
	// 验证服务设置
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	// Validate metrics settings
	// 验证指标设置
	if c.Metrics.Enable && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/'")
	}

	// Validate log settings
	// 验证日志设置
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "json", "console", "text":
	default:
		return fmt.Errorf("log.format must be one of: json, console")
	}
	switch c.Log.Output {
	case "stdout", "stderr", "file":
	default:
		return fmt.Errorf("log.output must be one of: stdout, stderr, file")
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		return fmt.Errorf("log.file_path must be specified when log.output is 'file'")
	}

	// Validate extensions settings
	// 验证扩展设置
	if c.Extensions.HotReload.Enable && c.Extensions.HotReload.WatchInterval < time.Second {
		return fmt.Errorf("extensions.hot_reload.watch_interval must be at least 1 second")
	}

	return nil
}

// CacheOptions converts the cache section into fetch cache options.
//
// CacheOptions 将缓存配置段转换为请求缓存选项。
func (c *Config) CacheOptions() []cache.Option {
	return []cache.Option{
		cache.WithName(c.Cache.Name),
		cache.WithMaxEntries(c.Cache.MaxEntries),
		cache.WithStaleTTL(c.Cache.StaleTTL),
		cache.WithCleanupInterval(c.Cache.CleanupInterval),
		cache.WithEviction(c.Cache.Eviction),
		cache.WithShards(c.Cache.ShardCount),
	}
}

// isPowerOfTwo checks if n is a power of 2.
// isPowerOfTwo 检查n是否为2的幂。
func isPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

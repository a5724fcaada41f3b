package configs

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes environment overrides, e.g. HCATALOG_API_BASE_URL.
const EnvPrefix = "HCATALOG"

// ViperConfig wraps a Config with Viper functionality for hot reloading.
// It provides thread-safe access to configuration and supports dynamic
// updates when the underlying configuration file changes.
//
// ViperConfig 使用Viper功能包装Config以支持热重载。
// 它提供对配置的线程安全访问，并支持在底层配置文件更改时进行动态更新。
type ViperConfig struct {
	config      *Config         // 当前配置
	viper       *viper.Viper    // 用于配置管理的Viper实例
	configFile  string          // 配置文件路径，可为空
	logger      *zap.Logger     // 热重载日志
	mu          sync.RWMutex    // 用于线程安全访问的互斥锁
	subscribers []func(*Config) // 配置更改时要通知的订阅者列表
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewViperConfig creates a new ViperConfig.
// Values come from defaults, then the file (if configFile is not empty),
// then HCATALOG_* environment variables. The result is validated.
//
// NewViperConfig 创建一个新的ViperConfig。
// 配置值依次来自默认值、配置文件（configFile不为空时）和HCATALOG_*环境变量，最后进行验证。
//
// Parameters:
//   - configFile: Path to the configuration file, may be empty
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading or validation fails
func NewViperConfig(configFile string) (*ViperConfig, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &ViperConfig{
		config:      config,
		viper:       v,
		configFile:  configFile,
		logger:      zap.NewNop(),
		subscribers: make([]func(*Config), 0),
		stop:        make(chan struct{}),
	}, nil
}

// SetLogger sets the logger used to report reloads.
// SetLogger 设置用于报告重载的日志记录器。
func (vc *ViperConfig) SetLogger(logger *zap.Logger) {
	if logger != nil {
		vc.logger = logger
	}
}

// EnableHotReload enables hot reloading of the configuration file.
// When the configuration file changes, the configuration is reloaded and
// all subscribers are notified. Invalid changes are logged and ignored.
//
// EnableHotReload 启用配置文件的热重载。
// 文件变化时重新加载配置并通知所有订阅者，无效的修改会被记录并忽略。
func (vc *ViperConfig) EnableHotReload() {
	if vc.configFile == "" {
		return
	}
	vc.viper.OnConfigChange(func(e fsnotify.Event) {
		vc.logger.Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		vc.reload()
	})
	vc.viper.WatchConfig()
}

// Watch polls the configuration file every interval, for file systems
// without change notifications. It stops on Close.
//
// Watch 每隔interval轮询配置文件，用于不支持变更通知的文件系统。调用Close后停止。
func (vc *ViperConfig) Watch(interval time.Duration) {
	if vc.configFile == "" || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := vc.viper.ReadInConfig(); err != nil {
					vc.logger.Warn("failed to read config file", zap.Error(err))
					continue
				}
				vc.reload()
			case <-vc.stop:
				return
			}
		}
	}()
}

// Close stops polling started by Watch.
func (vc *ViperConfig) Close() {
	vc.stopOnce.Do(func() { close(vc.stop) })
}

// Subscribe adds a subscriber that will be notified when the configuration changes.
//
// Subscribe 添加一个在配置更改时将被通知的订阅者。
func (vc *ViperConfig) Subscribe(subscriber func(*Config)) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.subscribers = append(vc.subscribers, subscriber)
}

// Get returns the current configuration.
// This method is thread-safe and can be called concurrently.
//
// Get 返回当前配置，可并发调用。
func (vc *ViperConfig) Get() *Config {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.config
}

// reload decodes the current viper state and publishes it if it changed.
func (vc *ViperConfig) reload() bool {
	newConfig, err := decode(vc.viper)
	if err != nil {
		vc.logger.Warn("ignoring invalid configuration", zap.Error(err))
		return false
	}

	vc.mu.Lock()
	if configsEqual(vc.config, newConfig) {
		vc.mu.Unlock()
		return false
	}
	vc.config = newConfig
	subscribers := make([]func(*Config), len(vc.subscribers))
	copy(subscribers, vc.subscribers)
	vc.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(newConfig)
	}
	return true
}

// LoadViperConfig loads a configuration using Viper.
// It optionally enables hot reloading based on the enableHotReload parameter.
//
// LoadViperConfig 使用Viper加载配置，并根据enableHotReload参数可选地启用热重载。
func LoadViperConfig(configFile string, enableHotReload bool) (*ViperConfig, error) {
	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}

	if enableHotReload {
		vc.EnableHotReload()
	}

	return vc, nil
}

func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// setDefaults registers every key so environment variables can override
// keys that the file does not mention.
//
// setDefaults 注册所有键，使环境变量可以覆盖配置文件中未出现的键。
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("api.base_url", c.API.BaseURL)
	v.SetDefault("api.timeout", c.API.Timeout)
	v.SetDefault("api.rate_limit", c.API.RateLimit)
	v.SetDefault("api.burst", c.API.Burst)

	v.SetDefault("cache.name", c.Cache.Name)
	v.SetDefault("cache.max_entries", c.Cache.MaxEntries)
	v.SetDefault("cache.stale_ttl", c.Cache.StaleTTL)
	v.SetDefault("cache.cleanup_interval", c.Cache.CleanupInterval)
	v.SetDefault("cache.eviction", c.Cache.Eviction)
	v.SetDefault("cache.shard_count", c.Cache.ShardCount)

	v.SetDefault("query.default_limit", c.Query.DefaultLimit)
	v.SetDefault("query.search_debounce", c.Query.SearchDebounce)
	v.SetDefault("query.price_debounce", c.Query.PriceDebounce)

	v.SetDefault("server.addr", c.Server.Addr)
	v.SetDefault("server.cors_origins", c.Server.CORSOrigins)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.session_ttl", c.Server.SessionTTL)

	v.SetDefault("metrics.enable", c.Metrics.Enable)
	v.SetDefault("metrics.path", c.Metrics.Path)
	v.SetDefault("metrics.namespace", c.Metrics.Namespace)

	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.output", c.Log.Output)
	v.SetDefault("log.file_path", c.Log.FilePath)

	v.SetDefault("extensions.hot_reload.enable", c.Extensions.HotReload.Enable)
	v.SetDefault("extensions.hot_reload.watch_interval", c.Extensions.HotReload.WatchInterval)
}

// configsEqual checks if two configs are equal by comparing their printed form.
// configsEqual 通过比较打印形式判断两个配置是否相等。
func configsEqual(c1, c2 *Config) bool {
	return fmt.Sprintf("%+v", *c1) == fmt.Sprintf("%+v", *c2)
}

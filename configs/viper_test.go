package configs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
)

const testYAML = `
api:
  base_url: "http://catalog.test"
  rate_limit: 20
  burst: 5
cache:
  name: "test-cache"
  max_entries: 1000
  stale_ttl: 60s
  shard_count: 64
query:
  search_debounce: 250ms
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hcatalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// TestViperConfigFile tests loading a file over the defaults.
// TestViperConfigFile 测试在默认值之上加载配置文件。
func TestViperConfigFile(t *testing.T) {
	vc, err := NewViperConfig(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	config := vc.Get()

	if config.API.BaseURL != "http://catalog.test" || config.API.Burst != 5 {
		t.Errorf("Unexpected api section: %+v", config.API)
	}
	if config.Cache.MaxEntries != 1000 || config.Cache.StaleTTL != 60*time.Second {
		t.Errorf("Unexpected cache section: %+v", config.Cache)
	}
	if config.Query.SearchDebounce != 250*time.Millisecond {
		t.Errorf("Expected 250ms search debounce, got %s", config.Query.SearchDebounce)
	}
	// 文件未提及的键保持默认值
	if config.Query.DefaultLimit != 8 || config.Cache.Eviction != "lru" {
		t.Errorf("Expected defaults for unset keys, got %d %s", config.Query.DefaultLimit, config.Cache.Eviction)
	}
}

// TestViperConfigEnv tests environment overrides without a file.
// TestViperConfigEnv 测试无配置文件时的环境变量覆盖。
func TestViperConfigEnv(t *testing.T) {
	if _, err := NewViperConfig(""); !errors.Is(err, cerrors.ErrMissingBaseURL) {
		t.Fatalf("Expected ErrMissingBaseURL without a base URL, got %v", err)
	}

	t.Setenv("HCATALOG_API_BASE_URL", "http://env.test")
	t.Setenv("HCATALOG_CACHE_MAX_ENTRIES", "32")
	t.Setenv("HCATALOG_LOG_LEVEL", "debug")

	vc, err := NewViperConfig("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	config := vc.Get()
	if config.API.BaseURL != "http://env.test" || config.Cache.MaxEntries != 32 || config.Log.Level != "debug" {
		t.Errorf("Expected env overrides, got %s %d %s", config.API.BaseURL, config.Cache.MaxEntries, config.Log.Level)
	}
}

// TestViperReload tests that a changed file reaches subscribers and an invalid one does not.
// TestViperReload 测试文件变化通知订阅者，无效修改不通知。
func TestViperReload(t *testing.T) {
	path := writeConfig(t, testYAML)
	vc, err := NewViperConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	var got []*Config
	vc.Subscribe(func(c *Config) { got = append(got, c) })

	if vc.reload() {
		t.Error("Expected no change without edits")
	}

	edited := strings.Replace(testYAML, "max_entries: 1000", "max_entries: 500", 1)
	os.WriteFile(path, []byte(edited), 0o644)
	if err := vc.viper.ReadInConfig(); err != nil {
		t.Fatalf("Failed to re-read config: %v", err)
	}
	if !vc.reload() || len(got) != 1 || got[0].Cache.MaxEntries != 500 {
		t.Fatalf("Expected subscriber to see 500 entries, got %d notifications", len(got))
	}

	invalid := strings.Replace(testYAML, "shard_count: 64", "shard_count: 3", 1)
	os.WriteFile(path, []byte(invalid), 0o644)
	vc.viper.ReadInConfig()
	if vc.reload() || vc.Get().Cache.ShardCount != 64 {
		t.Error("Expected invalid change to be ignored")
	}
}

// TestConfigsEqual tests the configsEqual helper function.
//
// TestConfigsEqual 测试configsEqual辅助函数。
func TestConfigsEqual(t *testing.T) {
	config1 := DefaultConfig()
	config2 := DefaultConfig()

	if !configsEqual(config1, config2) {
		t.Error("configsEqual() returned false for identical configs")
	}

	config2.Cache.MaxEntries = 1000
	if configsEqual(config1, config2) {
		t.Error("configsEqual() returned true for different configs")
	}
}

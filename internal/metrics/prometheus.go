package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 默认的Prometheus指标命名空间
const defaultNamespace = "hcatalog"

// Collectors 将请求缓存事件导出为Prometheus指标
type Collectors struct {
	lookups      *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	results      *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	removals     *prometheus.CounterVec
	entryGauge   prometheus.Gauge
}

// NewCollectors 在reg上注册采集器，namespace为空时使用默认值
func NewCollectors(reg prometheus.Registerer, namespace string) *Collectors {
	if namespace == "" {
		namespace = defaultNamespace
	}
	factory := promauto.With(reg)

	return &Collectors{
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by outcome (hit, miss, dedup)",
		}, []string{"outcome"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetches_total",
			Help:      "Product page loads started, by kind (first, next)",
		}, []string{"kind"}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetch_results_total",
			Help:      "Settled product page loads by result",
		}, []string{"result"}),
		fetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetch_duration_seconds",
			Help:      "Product page load duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		removals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "removed_entries_total",
			Help:      "Entries removed from the cache, by reason",
		}, []string{"reason"}),
		entryGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of cached series",
		}),
	}
}

// 以下方法允许nil接收者，未启用Prometheus时为空操作

func (c *Collectors) lookup(outcome string) {
	if c != nil {
		c.lookups.WithLabelValues(outcome).Inc()
	}
}

func (c *Collectors) fetch(kind string) {
	if c != nil {
		c.fetches.WithLabelValues(kind).Inc()
	}
}

func (c *Collectors) result(kind string, latency time.Duration) {
	if c != nil {
		c.results.WithLabelValues(kind).Inc()
		c.fetchLatency.WithLabelValues(kind).Observe(latency.Seconds())
	}
}

func (c *Collectors) removed(reason string, count int) {
	if c != nil && count > 0 {
		c.removals.WithLabelValues(reason).Add(float64(count))
	}
}

func (c *Collectors) entries(count int64) {
	if c != nil {
		c.entryGauge.Set(float64(count))
	}
}

// Package metrics provides fetch cache runtime metrics collection and reporting.
// Package metrics 提供请求缓存运行时指标采集与输出功能。
//
// Counters are updated atomically on the hot path and read through Snapshot.
// An optional set of Prometheus collectors mirrors every event for scraping.
//
// 计数器在热路径上原子更新，并通过Snapshot读取。
// 可选的Prometheus采集器同步记录每个事件，供抓取使用。
package metrics

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Metrics is a fetch cache metrics collector.
// It uses atomic operations to ensure thread safety in high-concurrency environments.
//
// Metrics 是请求缓存指标收集器。
// 使用原子操作确保高并发环境下的线程安全。
type Metrics struct {
	// Lookup metrics
	// 查询相关指标
	hits   uint64 // Served from a settled entry / 命中已完成条目
	misses uint64 // Had to start a load / 需要发起加载
	dedups uint64 // Attached to an in-flight load / 复用进行中的加载

	// Load metrics
	// 加载相关指标
	fetches       uint64 // Loads started / 已发起的加载
	continuations uint64 // Of which continuation pages / 其中的续页加载
	aborts        uint64 // Loads aborted / 被中止的加载
	networkErrors uint64 // Network failures / 网络错误
	decodeErrors  uint64 // Decode failures / 解码错误
	latencySum    uint64 // Sum of load latencies (ns) / 加载延迟总和（纳秒）
	latencyCount  uint64 // Loads with a measured latency / 有延迟记录的加载次数

	// Capacity metrics
	// 容量相关指标
	evictions  uint64 // Entries evicted by policy / 被策略淘汰的条目
	expired    uint64 // Entries removed by the cleaner / 被清理器删除的条目
	entryCount int64  // Current entries / 当前条目数

	startTime time.Time
	prom      *Collectors
}

// New creates a metrics collector. prom may be nil.
//
// New 创建一个指标收集器，prom可以为nil。
func New(prom *Collectors) *Metrics {
	return &Metrics{startTime: time.Now(), prom: prom}
}

// RecordHit records a lookup served from a settled entry.
// RecordHit 记录一次命中。
func (m *Metrics) RecordHit() {
	atomic.AddUint64(&m.hits, 1)
	m.prom.lookup("hit")
}

// RecordMiss records a lookup that started a load.
// RecordMiss 记录一次未命中。
func (m *Metrics) RecordMiss() {
	atomic.AddUint64(&m.misses, 1)
	m.prom.lookup("miss")
}

// RecordDedup records a caller attaching to an in-flight load.
// RecordDedup 记录一次复用进行中的加载。
func (m *Metrics) RecordDedup() {
	atomic.AddUint64(&m.dedups, 1)
	m.prom.lookup("dedup")
}

// RecordFetch records a load start.
// RecordFetch 记录一次加载开始。
func (m *Metrics) RecordFetch(continuation bool) {
	atomic.AddUint64(&m.fetches, 1)
	kind := "first"
	if continuation {
		atomic.AddUint64(&m.continuations, 1)
		kind = "next"
	}
	m.prom.fetch(kind)
}

// RecordResult records how a load settled and how long it took.
// kind is "ok", "aborted", "network" or "decode".
//
// RecordResult 记录加载的结果和耗时。kind为"ok"、"aborted"、"network"或"decode"。
func (m *Metrics) RecordResult(kind string, latency time.Duration) {
	switch kind {
	case "aborted":
		atomic.AddUint64(&m.aborts, 1)
	case "network":
		atomic.AddUint64(&m.networkErrors, 1)
	case "decode":
		atomic.AddUint64(&m.decodeErrors, 1)
	}
	atomic.AddUint64(&m.latencySum, uint64(latency.Nanoseconds()))
	atomic.AddUint64(&m.latencyCount, 1)
	m.prom.result(kind, latency)
}

// RecordEviction records entries evicted by the policy.
// RecordEviction 记录被淘汰的条目。
func (m *Metrics) RecordEviction(count int) {
	atomic.AddUint64(&m.evictions, uint64(count))
	m.prom.removed("evicted", count)
}

// RecordExpired records entries removed by the cleaner.
// RecordExpired 记录被清理的过期条目。
func (m *Metrics) RecordExpired(count int) {
	atomic.AddUint64(&m.expired, uint64(count))
	m.prom.removed("expired", count)
}

// UpdateEntryCount sets the current number of entries.
// UpdateEntryCount 更新当前条目数。
func (m *Metrics) UpdateEntryCount(count int64) {
	atomic.StoreInt64(&m.entryCount, count)
	m.prom.entries(count)
}

// Snapshot is a point-in-time copy of the metrics.
// Snapshot 是指标的时间点快照。
type Snapshot struct {
	Hits          uint64        `json:"hits"`
	Misses        uint64        `json:"misses"`
	Dedups        uint64        `json:"dedups"`
	HitRatio      float64       `json:"hit_ratio"`
	Fetches       uint64        `json:"fetches"`
	Continuations uint64        `json:"continuations"`
	Aborts        uint64        `json:"aborts"`
	NetworkErrors uint64        `json:"network_errors"`
	DecodeErrors  uint64        `json:"decode_errors"`
	AvgLatency    time.Duration `json:"avg_latency"`
	Evictions     uint64        `json:"evictions"`
	Expired       uint64        `json:"expired"`
	EntryCount    int64         `json:"entry_count"`
	Uptime        time.Duration `json:"uptime"`
}

// GetSnapshot returns the current metrics.
//
// GetSnapshot 返回当前指标。
//
// Returns:
//   - Snapshot: A copy of every counter
func (m *Metrics) GetSnapshot() Snapshot {
	s := Snapshot{
		Hits:          atomic.LoadUint64(&m.hits),
		Misses:        atomic.LoadUint64(&m.misses),
		Dedups:        atomic.LoadUint64(&m.dedups),
		Fetches:       atomic.LoadUint64(&m.fetches),
		Continuations: atomic.LoadUint64(&m.continuations),
		Aborts:        atomic.LoadUint64(&m.aborts),
		NetworkErrors: atomic.LoadUint64(&m.networkErrors),
		DecodeErrors:  atomic.LoadUint64(&m.decodeErrors),
		Evictions:     atomic.LoadUint64(&m.evictions),
		Expired:       atomic.LoadUint64(&m.expired),
		EntryCount:    atomic.LoadInt64(&m.entryCount),
		Uptime:        time.Since(m.startTime),
	}
	// 复用进行中加载的查询同样避免了一次请求，计入命中
	if total := s.Hits + s.Dedups + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits+s.Dedups) / float64(total)
	}
	if n := atomic.LoadUint64(&m.latencyCount); n > 0 {
		s.AvgLatency = time.Duration(atomic.LoadUint64(&m.latencySum) / n)
	}
	return s
}

// String returns the snapshot as JSON.
// String 以JSON格式返回快照。
func (s Snapshot) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}

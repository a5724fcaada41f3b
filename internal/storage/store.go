// Package storage provides the sharded, expiry-aware entry store behind the
// fetch cache.
// Package storage 提供请求缓存底层的分片存储，支持过期时间。
//
// Keys are canonical query strings. Sharding by key hash keeps concurrent
// readers of different series off each other's locks.
//
// 键为规范查询串。按键哈希分片，使不同序列的并发读取互不争用锁。
package storage

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// defaultShardCount is the default number of shards, a power of 2.
// defaultShardCount 是默认分片数量，为2的幂次方。
const defaultShardCount = 16

// Item represents an entry stored in the store.
// Item 表示存储中的条目。
type Item[V any] struct {
	Key        string // Canonical key / 键
	Value      V      // Stored value / 值
	AccessTime int64  // Last access timestamp (Unix nano) / 最后访问时间（Unix纳秒）
	ExpireAt   int64  // Expiration timestamp (Unix nano, 0 means never expire) / 过期时间（Unix纳秒，0表示永不过期）
}

// IsExpired checks if the item has expired at now (Unix nano).
//
// IsExpired 判断条目在now时刻（Unix纳秒）是否已过期。
func (item *Item[V]) IsExpired(now int64) bool {
	return item.ExpireAt > 0 && now >= item.ExpireAt
}

// Config contains configuration options for the storage.
// Config 存储层配置选项。
type Config struct {
	// ShardCount is the number of shards, rounded up to a power of 2.
	// ShardCount 是分片数量，向上取整为2的幂次方。
	ShardCount int

	// TrackAccessTime enables tracking of access times for items.
	// TrackAccessTime 是否启用访问时间追踪。
	TrackAccessTime bool
}

// Stats collects storage statistics.
// Stats 存储统计信息。
type Stats struct {
	Hits        uint64 // Lookup hit count / 命中次数
	Misses      uint64 // Lookup miss count / 未命中次数
	Expirations uint64 // Expired items removed / 过期删除次数
	Overwrites  uint64 // Overwrite count / 覆盖次数
	ItemCount   int64  // Current item count / 条目数量
}

type shard[V any] struct {
	sync.RWMutex
	items map[string]*Item[V]
}

// Store is a sharded map from key to Item.
// Store 是从键到条目的分片映射。
type Store[V any] struct {
	shards      []*shard[V]
	shardMask   uint64
	trackAccess bool

	hits        uint64
	misses      uint64
	expirations uint64
	overwrites  uint64
	itemCount   int64
}

// NewStore creates a new storage instance.
//
// NewStore 创建一个新的存储实例。
//
// Parameters:
//   - config: Configuration options for the storage, nil for defaults
//
// Returns:
//   - *Store[V]: A new storage instance
func NewStore[V any](config *Config) *Store[V] {
	if config == nil {
		config = &Config{}
	}
	count := config.ShardCount
	if count <= 0 {
		count = defaultShardCount
	}
	count = nextPowerOfTwo(count)

	shards := make([]*shard[V], count)
	for i := range shards {
		shards[i] = &shard[V]{items: make(map[string]*Item[V])}
	}
	return &Store[V]{
		shards:      shards,
		shardMask:   uint64(count - 1),
		trackAccess: config.TrackAccessTime,
	}
}

func (s *Store[V]) shardFor(key string) *shard[V] {
	return s.shards[hash(key)&s.shardMask]
}

// Get returns the live value for key. Expired items are reported as missing
// and left for DeleteExpired.
//
// Get 返回键对应的有效值。已过期的条目视为不存在，留给DeleteExpired清理。
func (s *Store[V]) Get(key string) (V, bool) {
	sh := s.shardFor(key)
	now := time.Now().UnixNano()

	sh.RLock()
	item, found := sh.items[key]
	if found && item.IsExpired(now) {
		found = false
	}
	var value V
	if found {
		value = item.Value
		if s.trackAccess {
			atomic.StoreInt64(&item.AccessTime, now)
		}
	}
	sh.RUnlock()

	if found {
		atomic.AddUint64(&s.hits, 1)
	} else {
		atomic.AddUint64(&s.misses, 1)
	}
	return value, found
}

// Peek returns the item for key without checking expiry or counting a lookup.
// Peek 返回键对应的条目，不检查过期且不计入统计。
func (s *Store[V]) Peek(key string) (*Item[V], bool) {
	sh := s.shardFor(key)
	sh.RLock()
	defer sh.RUnlock()
	item, ok := sh.items[key]
	return item, ok
}

// Set stores value under key. An expireAt of 0 never expires.
//
// Set 以key存储value。expireAt为0表示永不过期。
//
// Returns:
//   - bool: True if an existing item was replaced
func (s *Store[V]) Set(key string, value V, expireAt int64) bool {
	sh := s.shardFor(key)
	item := &Item[V]{
		Key:        key,
		Value:      value,
		AccessTime: time.Now().UnixNano(),
		ExpireAt:   expireAt,
	}

	sh.Lock()
	_, existed := sh.items[key]
	sh.items[key] = item
	sh.Unlock()

	if existed {
		atomic.AddUint64(&s.overwrites, 1)
	} else {
		atomic.AddInt64(&s.itemCount, 1)
	}
	return existed
}

// Touch moves the expiry of key to expireAt if the item exists.
// Touch 若条目存在，将其过期时间更新为expireAt。
func (s *Store[V]) Touch(key string, expireAt int64) bool {
	sh := s.shardFor(key)
	sh.Lock()
	defer sh.Unlock()
	item, ok := sh.items[key]
	if ok {
		item.ExpireAt = expireAt
	}
	return ok
}

// Delete removes key.
// Delete 删除指定键。
func (s *Store[V]) Delete(key string) bool {
	sh := s.shardFor(key)
	sh.Lock()
	_, ok := sh.items[key]
	delete(sh.items, key)
	sh.Unlock()

	if ok {
		atomic.AddInt64(&s.itemCount, -1)
	}
	return ok
}

// DeleteExpired removes every item expired at now and returns them.
// keep, when non-nil, can veto the removal of an item.
//
// DeleteExpired 删除now时刻所有已过期的条目并返回。keep不为nil时可阻止删除某个条目。
func (s *Store[V]) DeleteExpired(now int64, keep func(*Item[V]) bool) []*Item[V] {
	var removed []*Item[V]
	for _, sh := range s.shards {
		sh.Lock()
		for key, item := range sh.items {
			if !item.IsExpired(now) {
				continue
			}
			if keep != nil && keep(item) {
				continue
			}
			delete(sh.items, key)
			removed = append(removed, item)
		}
		sh.Unlock()
	}

	if n := len(removed); n > 0 {
		atomic.AddInt64(&s.itemCount, -int64(n))
		atomic.AddUint64(&s.expirations, uint64(n))
	}
	return removed
}

// Clear removes all items.
// Clear 清空所有条目。
func (s *Store[V]) Clear() {
	for _, sh := range s.shards {
		sh.Lock()
		sh.items = make(map[string]*Item[V])
		sh.Unlock()
	}
	atomic.StoreInt64(&s.itemCount, 0)
}

// Count returns the number of stored items, expired or not.
// Count 返回已存储的条目数（包括已过期但未清理的）。
func (s *Store[V]) Count() int64 {
	return atomic.LoadInt64(&s.itemCount)
}

// Keys returns every stored key in no particular order.
// Keys 返回所有已存储的键，顺序不定。
func (s *Store[V]) Keys() []string {
	keys := make([]string, 0, s.Count())
	s.ForEach(func(key string, _ *Item[V]) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// ForEach calls f for every item until f returns false.
// f must not call back into the store.
//
// ForEach 对每个条目调用f，直到f返回false。f不得回调存储。
func (s *Store[V]) ForEach(f func(key string, item *Item[V]) bool) {
	for _, sh := range s.shards {
		sh.RLock()
		for key, item := range sh.items {
			if !f(key, item) {
				sh.RUnlock()
				return
			}
		}
		sh.RUnlock()
	}
}

// Stats returns a snapshot of the storage statistics.
// Stats 返回存储统计信息的快照。
func (s *Store[V]) Stats() Stats {
	return Stats{
		Hits:        atomic.LoadUint64(&s.hits),
		Misses:      atomic.LoadUint64(&s.misses),
		Expirations: atomic.LoadUint64(&s.expirations),
		Overwrites:  atomic.LoadUint64(&s.overwrites),
		ItemCount:   atomic.LoadInt64(&s.itemCount),
	}
}

// nextPowerOfTwo returns the smallest power of 2 not below n.
// nextPowerOfTwo 返回不小于n的最小2的幂。
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func hash(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

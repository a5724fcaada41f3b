package storage

import (
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"
)

// TestSetGetDelete verifies basic operations and counters.
// TestSetGetDelete 验证基本操作和计数。
func TestSetGetDelete(t *testing.T) {
	s := NewStore[int](&Config{ShardCount: 3})
	if len(s.shards) != 4 {
		t.Fatalf("Expected shard count rounded to 4, got %d", len(s.shards))
	}

	if s.Set("a", 1, 0) {
		t.Error("Expected first Set to report a new item")
	}
	if !s.Set("a", 2, 0) {
		t.Error("Expected second Set to report an overwrite")
	}
	v, ok := s.Get("a")
	if !ok || v != 2 {
		t.Fatalf("Expected 2, got %d (found=%v)", v, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Expected miss for unknown key")
	}
	if !s.Delete("a") || s.Delete("a") {
		t.Error("Expected Delete to succeed exactly once")
	}

	st := s.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Overwrites != 1 || st.ItemCount != 0 {
		t.Errorf("Unexpected stats %+v", st)
	}
}

// TestExpiry verifies that expired items read as missing and are swept.
// TestExpiry 验证过期条目读取为不存在且会被清理。
func TestExpiry(t *testing.T) {
	s := NewStore[string](nil)
	past := time.Now().Add(-time.Second).UnixNano()
	s.Set("old", "x", past)
	s.Set("kept", "y", past)
	s.Set("live", "z", 0)

	if _, ok := s.Get("old"); ok {
		t.Error("Expected expired item to be missing")
	}

	removed := s.DeleteExpired(time.Now().UnixNano(), func(item *Item[string]) bool {
		return item.Key == "kept"
	})
	if len(removed) != 1 || removed[0].Key != "old" {
		t.Fatalf("Expected only 'old' removed, got %d items", len(removed))
	}
	if s.Count() != 2 {
		t.Errorf("Expected 2 items left, got %d", s.Count())
	}

	if !s.Touch("kept", 0) {
		t.Fatal("Expected Touch to find 'kept'")
	}
	if v, ok := s.Get("kept"); !ok || v != "y" {
		t.Errorf("Expected touched item to be live, got %q %v", v, ok)
	}
}

// TestKeysAndClear verifies enumeration and clearing.
// TestKeysAndClear 验证枚举与清空。
func TestKeysAndClear(t *testing.T) {
	s := NewStore[int](nil)
	for i := 0; i < 5; i++ {
		s.Set(strconv.Itoa(i), i, 0)
	}
	keys := s.Keys()
	sort.Strings(keys)
	if len(keys) != 5 || keys[0] != "0" || keys[4] != "4" {
		t.Errorf("Unexpected keys %v", keys)
	}

	count := 0
	s.ForEach(func(string, *Item[int]) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("Expected ForEach to stop after 2, got %d", count)
	}

	s.Clear()
	if s.Count() != 0 || len(s.Keys()) != 0 {
		t.Error("Expected empty store after Clear")
	}
}

// TestConcurrentAccess exercises the shards from many goroutines.
// TestConcurrentAccess 从多个协程并发访问分片。
func TestConcurrentAccess(t *testing.T) {
	s := NewStore[int](&Config{TrackAccessTime: true})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := strconv.Itoa(i % 50)
				s.Set(key, g, 0)
				s.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if s.Count() != 50 {
		t.Errorf("Expected 50 items, got %d", s.Count())
	}
}

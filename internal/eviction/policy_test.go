package eviction

import (
	"reflect"
	"testing"
)

// TestLRUEvictsLeastRecentlyUsed verifies LRU ordering.
// TestLRUEvictsLeastRecentlyUsed 验证LRU顺序。
func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	p := NewLRU(2)
	p.Add("a")
	p.Add("b")
	p.Access("a")

	victims := p.Add("c")
	if !reflect.DeepEqual(victims, []string{"b"}) {
		t.Errorf("Expected [b] evicted, got %v", victims)
	}
	if p.Len() != 2 {
		t.Errorf("Expected 2 keys, got %d", p.Len())
	}
}

// TestFIFOIgnoresAccess verifies that FIFO evicts in insertion order.
// TestFIFOIgnoresAccess 验证FIFO按插入顺序淘汰。
func TestFIFOIgnoresAccess(t *testing.T) {
	p := NewFIFO(2)
	p.Add("a")
	p.Add("b")
	p.Access("a")

	victims := p.Add("c")
	if !reflect.DeepEqual(victims, []string{"a"}) {
		t.Errorf("Expected [a] evicted, got %v", victims)
	}
}

// TestUnbounded verifies that a non-positive capacity never evicts.
// TestUnbounded 验证容量不为正时不淘汰。
func TestUnbounded(t *testing.T) {
	p, err := New("", 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, k := range []string{"a", "b", "c", "a"} {
		if v := p.Add(k); len(v) != 0 {
			t.Fatalf("Expected no eviction, got %v", v)
		}
	}
	if p.Len() != 3 {
		t.Errorf("Expected 3 keys, got %d", p.Len())
	}
	if !p.Remove("b") || p.Remove("b") {
		t.Error("Expected Remove to succeed exactly once")
	}
	p.Clear()
	if p.Len() != 0 {
		t.Errorf("Expected 0 keys after Clear, got %d", p.Len())
	}
}

// TestNewUnknown verifies the error for unknown names.
// TestNewUnknown 验证未知名称返回错误。
func TestNewUnknown(t *testing.T) {
	if _, err := New("random", 10); err == nil {
		t.Error("Expected error for unknown policy")
	}
	if p, err := New(FIFO, 1); err != nil || p == nil {
		t.Errorf("Expected FIFO policy, got %v %v", p, err)
	}
}

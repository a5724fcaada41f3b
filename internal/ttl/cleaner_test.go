package ttl

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestCleanerRunsPeriodically 验证清理器按间隔运行并累计统计
func TestCleanerRunsPeriodically(t *testing.T) {
	var calls int32
	c := NewCleaner(SweepFunc(func(time.Time) int {
		atomic.AddInt32(&calls, 1)
		return 2
	}), 10*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Close()
	c.Close()

	n := atomic.LoadInt32(&calls)
	if n < 3 {
		t.Fatalf("Expected at least 3 sweeps, got %d", n)
	}
	st := c.GetStats()
	if st.CleanCount != uint64(n) || st.ExpiredCount != uint64(2*n) {
		t.Errorf("Unexpected stats %+v for %d sweeps", st, n)
	}

	// 关闭后不再清理
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&calls) != n {
		t.Error("Cleaner kept running after Close")
	}
}

// TestForceClean 验证手动清理
func TestForceClean(t *testing.T) {
	c := NewCleaner(SweepFunc(func(time.Time) int { return 5 }), time.Hour)
	defer c.Close()

	if got := c.ForceClean(); got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}
	if c.GetStats().CleanInterval != time.Hour {
		t.Errorf("Expected interval 1h, got %v", c.GetStats().CleanInterval)
	}
}

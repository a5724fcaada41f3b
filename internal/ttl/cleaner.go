// Package ttl 提供缓存条目的过期清理
// 后台协程定期调用Sweeper删除过期条目
package ttl

import (
	"sync"
	"sync/atomic"
	"time"
)

// 默认清理间隔
const defaultCleanInterval = time.Minute

// Sweeper 删除now时刻已过期的条目，返回删除数量
type Sweeper interface {
	Sweep(now time.Time) int
}

// SweepFunc 是实现Sweeper接口的函数类型
type SweepFunc func(now time.Time) int

// Sweep 调用函数本身
func (f SweepFunc) Sweep(now time.Time) int { return f(now) }

// Cleaner 定期对Sweeper执行过期清理
type Cleaner struct {
	sweeper       Sweeper        // 清理对象
	cleanInterval time.Duration  // 清理间隔
	closeChan     chan struct{}  // 关闭信号
	closeOnce     sync.Once      // 确保只关闭一次
	wg            sync.WaitGroup // 等待组
	cleanCount    uint64         // 清理次数
	expiredCount  uint64         // 过期项数量
	cleanDuration int64          // 最近一次清理耗时（纳秒）
}

// NewCleaner 创建并启动一个新的清理器，interval不为正时使用默认间隔
func NewCleaner(sweeper Sweeper, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = defaultCleanInterval
	}

	c := &Cleaner{
		sweeper:       sweeper,
		cleanInterval: interval,
		closeChan:     make(chan struct{}),
	}

	// 启动清理协程
	c.wg.Add(1)
	go c.cleanerLoop()

	return c
}

// cleanerLoop 清理循环，定期清理过期项
func (c *Cleaner) cleanerLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.ForceClean()
		case <-c.closeChan:
			return
		}
	}
}

// ForceClean 立即执行一次清理，返回删除数量
func (c *Cleaner) ForceClean() int {
	start := time.Now()
	n := c.sweeper.Sweep(start)

	// 更新统计信息
	atomic.AddUint64(&c.cleanCount, 1)
	atomic.AddUint64(&c.expiredCount, uint64(n))
	atomic.StoreInt64(&c.cleanDuration, time.Since(start).Nanoseconds())
	return n
}

// Close 关闭清理器并等待清理协程退出
func (c *Cleaner) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
	})
	c.wg.Wait()
}

// Stats 清理器统计信息
type Stats struct {
	CleanCount    uint64        `json:"clean_count"`
	ExpiredCount  uint64        `json:"expired_count"`
	CleanDuration time.Duration `json:"clean_duration"`
	CleanInterval time.Duration `json:"clean_interval"`
}

// GetStats 获取清理器的统计信息
func (c *Cleaner) GetStats() Stats {
	return Stats{
		CleanCount:    atomic.LoadUint64(&c.cleanCount),
		ExpiredCount:  atomic.LoadUint64(&c.expiredCount),
		CleanDuration: time.Duration(atomic.LoadInt64(&c.cleanDuration)),
		CleanInterval: c.cleanInterval,
	}
}

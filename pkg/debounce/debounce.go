// Package debounce provides a single-slot trailing-edge debounce scheduler.
//
// Each Scheduler owns exactly one pending slot. Scheduling replaces whatever
// is pending, so a burst of calls collapses into one execution of the last
// action once the delay passes without another call.
//
// Package debounce 提供单槽位的尾沿防抖调度器。
// 每个Scheduler只有一个待执行槽位，新的调度会替换旧的，
// 一连串调用在静默期结束后只执行最后一个动作。
package debounce

import (
	"sync"
	"time"
)

// Scheduler is a trailing-edge debouncer. The zero value is ready to use.
// Schedulers are independent: cancelling or replacing an action in one never
// touches another.
//
// Scheduler 是尾沿防抖器，零值可直接使用。
// 各个Scheduler相互独立。
type Scheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64 // 每次调度或取消时递增，过期的定时回调据此放弃执行
	closed  bool
}

// New creates a Scheduler.
// New 创建一个调度器。
func New() *Scheduler {
	return &Scheduler{}
}

// Schedule replaces any pending action with action and arms a timer for delay.
// The action always runs on the timer goroutine, never inside Schedule.
// Calls on a closed Scheduler are ignored.
//
// Schedule 用新动作替换待执行动作，并启动delay时长的定时器。
// 动作总是在定时器协程中执行，不会在Schedule内同步执行。关闭后的调用被忽略。
//
// Parameters:
//   - action: The function to run after the quiet period
//   - delay: The quiet period
func (s *Scheduler) Schedule(action func(), delay time.Duration) {
	if action == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.stopLocked()
	s.gen++
	gen := s.gen
	s.pending = action
	s.timer = time.AfterFunc(delay, func() {
		s.fire(gen)
	})
}

// fire runs the pending action if it still belongs to generation gen.
// A timer that already fired when Stop was called lands here with an old
// generation and does nothing.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	action := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	action()
}

// Cancel discards the pending action without running it.
//
// Cancel 丢弃待执行动作，不执行。
//
// Returns:
//   - bool: True if an action was pending
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	had := s.pending != nil
	s.stopLocked()
	s.gen++
	return had
}

// Flush runs the pending action immediately on the calling goroutine.
//
// Flush 在当前协程中立即执行待执行动作。
//
// Returns:
//   - bool: True if an action was run
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	action := s.pending
	s.stopLocked()
	s.gen++
	s.mu.Unlock()

	if action == nil {
		return false
	}
	action()
	return true
}

// Pending reports whether an action is waiting to fire.
// Pending 判断是否有待执行的动作。
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Close cancels the pending action and ignores every later Schedule call.
// Close 取消待执行动作，此后的Schedule调用均被忽略。
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	s.closed = true
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
}

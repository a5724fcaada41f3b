package store

import (
	"sync"
	"time"

	"github.com/Humphrey-He/hcatalog/pkg/debounce"
)

// DebouncedInput keeps the locally echoed value of a rapidly changing input
// and forwards it to commit only after the input has been quiet for delay.
// The echo is updated synchronously so keystrokes are never delayed; only
// the commit, and the fetch behind it, is.
//
// DebouncedInput 保存快速变化输入的本地回显值，只有在输入静默delay之后才提交。
// 回显同步更新，因此按键不会延迟；只有提交及其触发的请求被延迟。
type DebouncedInput[T any] struct {
	mu     sync.Mutex
	value  T
	delay  time.Duration
	sched  *debounce.Scheduler
	commit func(T)
}

// NewDebouncedInput creates an input with the given echo value.
//
// NewDebouncedInput 创建一个带初始回显值的输入。
//
// Parameters:
//   - initial: The starting echo value
//   - delay: The quiet period before committing
//   - commit: Called with the last value once the input goes quiet
//
// Returns:
//   - *DebouncedInput[T]: A new input
func NewDebouncedInput[T any](initial T, delay time.Duration, commit func(T)) *DebouncedInput[T] {
	return &DebouncedInput[T]{
		value:  initial,
		delay:  delay,
		sched:  debounce.New(),
		commit: commit,
	}
}

// Input records v as the echo value and schedules its commit.
// Input 将v记为回显值并调度提交。
func (in *DebouncedInput[T]) Input(v T) {
	in.mu.Lock()
	in.value = v
	in.mu.Unlock()

	in.sched.Schedule(func() { in.commit(v) }, in.delay)
}

// Value returns the echo value.
// Value 返回回显值。
func (in *DebouncedInput[T]) Value() T {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.value
}

// Pending reports whether a commit is waiting.
// Pending 判断是否有等待中的提交。
func (in *DebouncedInput[T]) Pending() bool {
	return in.sched.Pending()
}

// Flush commits the pending value now.
// Flush 立即提交等待中的值。
func (in *DebouncedInput[T]) Flush() bool {
	return in.sched.Flush()
}

// Sync drops any pending commit and sets the echo to v, for when the
// committed value changed elsewhere (for example a reset).
//
// Sync 丢弃等待中的提交并将回显设为v，用于已提交值在别处被修改的场景（例如重置）。
func (in *DebouncedInput[T]) Sync(v T) {
	in.sched.Cancel()
	in.mu.Lock()
	in.value = v
	in.mu.Unlock()
}

// Close discards any pending commit; later input is ignored.
// Close 丢弃等待中的提交，之后的输入不再提交。
func (in *DebouncedInput[T]) Close() {
	in.sched.Close()
}

// PriceRange is the echo value of the price range control
// PriceRange 是价格区间控件的回显值
type PriceRange struct {
	Min *float64
	Max *float64
}

// NewSearchInput binds a debounced free-text field to s.
// NewSearchInput 将防抖的全文输入框绑定到s。
func NewSearchInput(s *Store, delay time.Duration) *DebouncedInput[string] {
	return NewDebouncedInput(s.Current().Q, delay, func(q string) {
		s.Commit(SetQuery(q))
	})
}

// NewPriceRangeInput binds a debounced price range control to s.
// NewPriceRangeInput 将防抖的价格区间控件绑定到s。
func NewPriceRangeInput(s *Store, delay time.Duration) *DebouncedInput[PriceRange] {
	cur := s.Current()
	return NewDebouncedInput(PriceRange{Min: cur.PriceGTE, Max: cur.PriceLTE}, delay, func(r PriceRange) {
		s.Commit(SetPriceRange(r.Min, r.Max))
	})
}

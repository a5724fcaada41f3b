// Package store holds the committed catalog query and publishes every new
// value to its subscribers.
//
// Package store 保存已提交的目录查询参数，并将每个新值发布给订阅者。
package store

import (
	"sync"

	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// Subscriber receives each committed value, in commit order.
// Subscriber 按提交顺序接收每个已提交的值。
type Subscriber func(params.ProductQueryParams)

// Update derives the next value from the previous one.
// The previous value is a private copy and may be modified freely.
//
// Update 根据前一个值生成下一个值。前一个值是私有副本，可以自由修改。
type Update func(prev params.ProductQueryParams) params.ProductQueryParams

type subscription struct {
	id uint64
	fn Subscriber
}

// Store is the single owner of the current query parameters.
// Values are never mutated in place: every commit installs a new value.
//
// Store 是当前查询参数的唯一持有者。值不会被原地修改，每次提交都会安装一个新值。
type Store struct {
	mu       sync.Mutex
	current  params.ProductQueryParams
	subs     []subscription
	nextID   uint64
	queue    []params.ProductQueryParams
	draining bool
	commits  uint64
}

// New creates a Store holding the normalized initial value.
//
// New 创建一个持有规范化初始值的Store。
//
// Parameters:
//   - initial: The starting parameters, usually decoded from the incoming URL
//
// Returns:
//   - *Store: A new store
func New(initial params.ProductQueryParams) *Store {
	return &Store{current: initial.Normalize()}
}

// Current returns a copy of the committed value.
// Current 返回已提交值的副本。
func (s *Store) Current() params.ProductQueryParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Commits returns how many commits have been applied.
// Commits 返回已应用的提交次数。
func (s *Store) Commits() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Commit applies update to the current value, normalizes the result, installs
// it and publishes it to every subscriber.
//
// Commits are applied in the order they are issued and none is dropped.
// A commit made while subscribers are running (from a subscriber itself or
// another goroutine) is installed at once and published after the values
// queued before it. update runs with the store locked and must not call
// back into the store; subscribers may.
//
// Commit 对当前值应用update，规范化结果后安装并发布给所有订阅者。
// 提交按发出顺序应用，不会丢弃。在订阅者运行期间发生的提交会立即安装，
// 并在之前排队的值之后发布。update在持锁状态下运行，不得回调Store；订阅者可以。
//
// Parameters:
//   - update: Derives the next value from the previous one
//
// Returns:
//   - params.ProductQueryParams: The installed value
func (s *Store) Commit(update Update) params.ProductQueryParams {
	next, drain := s.install(update)
	if drain {
		s.drain()
	}
	return next.Clone()
}

// install applies update and queues the result. drain reports whether the
// caller has to publish the queue.
func (s *Store) install(update Update) (next params.ProductQueryParams, drain bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next = update(s.current.Clone()).Normalize()
	s.current = next
	s.commits++
	s.queue = append(s.queue, next)
	if s.draining {
		return next, false
	}
	s.draining = true
	return next, true
}

// drain publishes queued values until the queue is empty. A panicking
// subscriber stops this drain; the values still queued go out with the next commit.
//
// drain 发布队列中的值直到队列为空。订阅者panic时停止本次发布，剩余的值随下一次提交发布。
func (s *Store) drain() {
	finished := false
	defer func() {
		if !finished {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
		}
	}()

	for {
		value, subs, ok := s.dequeue()
		if !ok {
			finished = true
			return
		}
		for _, sub := range subs {
			sub.fn(value.Clone())
		}
	}
}

func (s *Store) dequeue() (params.ProductQueryParams, []subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		s.draining = false
		return params.ProductQueryParams{}, nil, false
	}
	value := s.queue[0]
	s.queue = s.queue[1:]
	return value, append([]subscription(nil), s.subs...), true
}

// Apply commits the composition of updates as a single commit.
// Apply 将多个更新组合为一次提交。
func (s *Store) Apply(updates ...Update) params.ProductQueryParams {
	return s.Commit(func(prev params.ProductQueryParams) params.ProductQueryParams {
		for _, u := range updates {
			prev = u(prev)
		}
		return prev
	})
}

// Subscribe registers fn for future commits.
//
// Subscribe 为之后的提交注册订阅函数。
//
// Returns:
//   - func(): Removes the subscription; safe to call more than once
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Package eviction provides the policies that bound the number of cached series.
// Package eviction 提供限制缓存序列数量的淘汰策略。
//
// A policy only tracks keys and their order; the values live in the store.
// When a key is added past the capacity the policy names the victims and the
// caller removes them from the store.
//
// 策略只跟踪键及其顺序，值保存在存储层中。
// 当添加的键超出容量时，策略给出被淘汰的键，由调用方从存储中删除。
package eviction

import (
	"container/list"
	"fmt"
	"sync"
)

// Policy names accepted by New.
// New 接受的策略名称。
const (
	LRU  = "lru"
	FIFO = "fifo"
)

// Policy defines the interface for cache eviction policies.
// Policy 定义缓存淘汰策略接口。
type Policy interface {
	// Add records key as present.
	// Returns the keys that must be evicted to stay within capacity.
	//
	// Add 记录键的存在。
	// 返回为保持容量上限而必须淘汰的键。
	//
	// Parameters:
	//   - key: The key to add
	//
	// Returns:
	//   - []string: Keys to evict, oldest first
	Add(key string) []string

	// Access records a read of key.
	//
	// Access 记录一次对键的读取。
	Access(key string)

	// Remove forgets key.
	// Returns false if the key was not tracked.
	//
	// Remove 移除对键的跟踪。若键未被跟踪则返回false。
	Remove(key string) bool

	// Len returns the number of tracked keys.
	//
	// Len 返回被跟踪的键数量。
	Len() int

	// Clear forgets every key.
	//
	// Clear 清空所有键。
	Clear()
}

// New creates the policy called name with capacity maxItems.
// A maxItems of 0 or less means unbounded.
//
// New 创建名为name、容量为maxItems的策略。maxItems小于等于0表示不限。
//
// Parameters:
//   - name: "lru" or "fifo"; "" selects lru
//   - maxItems: The capacity
//
// Returns:
//   - Policy: The policy
//   - error: If name is unknown
func New(name string, maxItems int) (Policy, error) {
	switch name {
	case LRU, "":
		return NewLRU(maxItems), nil
	case FIFO:
		return NewFIFO(maxItems), nil
	default:
		return nil, fmt.Errorf("eviction: unknown policy %q", name)
	}
}

// listPolicy keeps keys in a list, most recent at the front.
// listPolicy 使用链表保存键，最新的在表头。
type listPolicy struct {
	mu           sync.Mutex
	maxItems     int
	moveOnAccess bool
	items        map[string]*list.Element // 键到链表节点的映射
	order        *list.List               // 头部最新，尾部最旧
}

func newListPolicy(maxItems int, moveOnAccess bool) *listPolicy {
	return &listPolicy{
		maxItems:     maxItems,
		moveOnAccess: moveOnAccess,
		items:        make(map[string]*list.Element),
		order:        list.New(),
	}
}

// Add 添加键，返回需要淘汰的键
func (p *listPolicy) Add(key string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if elem, ok := p.items[key]; ok {
		if p.moveOnAccess {
			p.order.MoveToFront(elem)
		}
		return nil
	}
	p.items[key] = p.order.PushFront(key)

	if p.maxItems <= 0 {
		return nil
	}
	var victims []string
	for p.order.Len() > p.maxItems {
		elem := p.order.Back()
		victim := elem.Value.(string)
		p.order.Remove(elem)
		delete(p.items, victim)
		victims = append(victims, victim)
	}
	return victims
}

// Access 记录读取
func (p *listPolicy) Access(key string) {
	if !p.moveOnAccess {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if elem, ok := p.items[key]; ok {
		p.order.MoveToFront(elem)
	}
}

// Remove 移除键
func (p *listPolicy) Remove(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	elem, ok := p.items[key]
	if !ok {
		return false
	}
	p.order.Remove(elem)
	delete(p.items, key)
	return true
}

// Len 返回键数量
func (p *listPolicy) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

// Clear 清空
func (p *listPolicy) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = make(map[string]*list.Element)
	p.order.Init()
}

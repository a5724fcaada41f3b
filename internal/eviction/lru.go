package eviction

// LRUPolicy 实现基于LRU（Least Recently Used）的淘汰策略
// 读取会把键移到最新位置，淘汰最久未使用的键
type LRUPolicy struct {
	*listPolicy
}

// NewLRU 创建一个新的LRU淘汰策略
func NewLRU(maxItems int) *LRUPolicy {
	return &LRUPolicy{listPolicy: newListPolicy(maxItems, true)}
}

// FIFOPolicy 实现先进先出的淘汰策略
// 读取不影响顺序，淘汰最早加入的键
type FIFOPolicy struct {
	*listPolicy
}

// NewFIFO 创建一个新的FIFO淘汰策略
func NewFIFO(maxItems int) *FIFOPolicy {
	return &FIFOPolicy{listPolicy: newListPolicy(maxItems, false)}
}

package loader

import (
	"context"
	"sync"

	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// Responder produces the page a MockLoader returns for p.
// Responder 生成MockLoader针对p返回的页面。
type Responder func(p params.ProductQueryParams) (model.Page, error)

// MockLoader provides a scriptable Loader for testing.
// It counts calls per page request and can hold every load until released,
// which makes concurrent scenarios deterministic.
//
// MockLoader 提供一个可编排的Loader，用于测试。
// 它按页面请求计数，并可阻塞所有加载直到释放，使并发场景可确定地复现。
type MockLoader struct {
	mu      sync.Mutex
	respond Responder
	calls   int
	byKey   map[string]int
	gate    chan struct{}
	started chan params.ProductQueryParams
}

// NewMockLoader creates a mock loader answering with respond.
//
// NewMockLoader 创建一个使用respond应答的模拟加载器。
//
// Parameters:
//   - respond: Produces the page for each request
//
// Returns:
//   - *MockLoader: A new mock loader instance
func NewMockLoader(respond Responder) *MockLoader {
	return &MockLoader{
		respond: respond,
		byKey:   make(map[string]int),
		started: make(chan params.ProductQueryParams, 256),
	}
}

// Load records the call, waits for the gate if one is held and answers.
// A context that ends while waiting produces an abort error.
//
// Load 记录调用，若存在闸门则等待，然后应答。等待期间上下文结束时返回中止错误。
func (m *MockLoader) Load(ctx context.Context, p params.ProductQueryParams) (model.Page, error) {
	m.mu.Lock()
	m.calls++
	m.byKey[params.Encode(p)]++
	gate := m.gate
	respond := m.respond
	m.mu.Unlock()

	select {
	case m.started <- p:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.Page{}, WaitError(ctx, p, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return model.Page{}, WaitError(ctx, p, err)
	}
	return respond(p)
}

// Hold makes every later Load block until Release.
// Hold 使之后的每次Load阻塞直到Release。
func (m *MockLoader) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks all held loads.
// Release 释放所有被阻塞的加载。
func (m *MockLoader) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Started delivers the parameters of each load as it begins.
// Started 在每次加载开始时投递其参数。
func (m *MockLoader) Started() <-chan params.ProductQueryParams {
	return m.started
}

// SetResponder replaces the responder for later loads.
// SetResponder 替换之后加载使用的应答函数。
func (m *MockLoader) SetResponder(respond Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = respond
}

// Calls returns the total number of loads.
// Calls 返回加载总次数。
func (m *MockLoader) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// CallsFor returns the number of loads for exactly p.
// CallsFor 返回针对p的加载次数。
func (m *MockLoader) CallsFor(p params.ProductQueryParams) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKey[params.Encode(p)]
}

// SlicePages answers from a fixed product list, slicing by page and limit
// and reporting the full list length as the total.
//
// SlicePages 从固定商品列表中按页码和每页数量切片应答，并以列表长度作为总数。
func SlicePages(products []model.Product) Responder {
	return func(p params.ProductQueryParams) (model.Page, error) {
		start := (p.Page - 1) * p.Limit
		end := start + p.Limit
		if start < 0 {
			start = 0
		}
		if start > len(products) {
			start = len(products)
		}
		if end > len(products) {
			end = len(products)
		}
		if end < start {
			end = start
		}
		data := append([]model.Product(nil), products[start:end]...)
		return model.Page{Data: data, Limit: p.Limit, Page: p.Page, Total: len(products)}, nil
	}
}

// GenerateProducts returns n products with ids 1..n and prices equal to their ids.
// GenerateProducts 返回n个商品，id为1..n，价格等于id。
func GenerateProducts(n int) []model.Product {
	out := make([]model.Product, n)
	for i := range out {
		out[i] = model.Product{ID: i + 1, Title: "Product", Price: float64(i + 1)}
	}
	return out
}

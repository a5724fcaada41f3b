package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
	"github.com/Humphrey-He/hcatalog/pkg/loader"
	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

func newTestCache(t *testing.T, m *loader.MockLoader, options ...Option) *FetchCache {
	t.Helper()
	c, err := NewWithOptions(m, options...)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func limitParams(limit int) params.ProductQueryParams {
	p := params.Default()
	p.Limit = limit
	return p
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestGetOrFetch tests a miss followed by a hit.
// TestGetOrFetch 测试未命中后命中。
func TestGetOrFetch(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	c := newTestCache(t, m)
	p := limitParams(4)

	res, err := c.GetOrFetch(context.Background(), "a", p)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if res.Status != StatusSettled || len(res.Pages) != 1 || len(res.Products()) != 4 {
		t.Errorf("Expected one settled page of 4, got %s with %d pages", res.Status, len(res.Pages))
	}
	if res.Total() != 10 || res.TotalPages() != 3 {
		t.Errorf("Expected total 10 over 3 pages, got %d over %d", res.Total(), res.TotalPages())
	}

	if _, err := c.GetOrFetch(context.Background(), "b", p); err != nil {
		t.Fatalf("Second GetOrFetch failed: %v", err)
	}
	if m.Calls() != 1 {
		t.Errorf("Expected 1 load, got %d", m.Calls())
	}
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

// TestConcurrentDedup tests that equal parameters share one load.
// TestConcurrentDedup 测试相同参数共享一次加载。
func TestConcurrentDedup(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	m.Hold()
	c := newTestCache(t, m)
	p := limitParams(4)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i, owner := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(context.Background(), owner, p)
		}(i, owner)
	}

	<-m.Started()
	waitFor(t, func() bool { return c.Stats().Dedups == 1 })
	m.Release()
	wg.Wait()

	for i := range results {
		if errs[i] != nil || results[i].Status != StatusSettled {
			t.Errorf("Caller %d: expected settled result, got %s (%v)", i, results[i].Status, errs[i])
		}
	}
	if m.Calls() != 1 {
		t.Errorf("Expected 1 load, got %d", m.Calls())
	}
}

// TestDistinctKeys tests that different parameters start separate series.
// TestDistinctKeys 测试不同参数开启独立序列。
func TestDistinctKeys(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	c := newTestCache(t, m)

	p1 := limitParams(4)
	p2 := p1.Clone()
	p2.Q = "lamp"
	p3 := p1.Clone()
	p3.Page = 2

	for _, p := range []params.ProductQueryParams{p1, p2, p3} {
		if _, err := c.GetOrFetch(context.Background(), "a", p); err != nil {
			t.Fatalf("GetOrFetch %s failed: %v", p.Key(), err)
		}
	}
	if m.Calls() != 3 || c.Stats().Entries != 3 {
		t.Errorf("Expected 3 loads and entries, got %d and %d", m.Calls(), c.Stats().Entries)
	}

	res, _ := c.Peek(p3)
	if res.Pages[0].Page != 2 || res.Products()[0].ID != 5 {
		t.Errorf("Expected series starting at page 2, got page %d", res.Pages[0].Page)
	}
}

// TestFetchNextPage tests appending continuation pages up to the last one.
// TestFetchNextPage 测试追加续页直到最后一页。
func TestFetchNextPage(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	c := newTestCache(t, m)
	p := limitParams(4)
	ctx := context.Background()

	if _, err := c.FetchNextPage(ctx, "a", p); !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound before the first page, got %v", err)
	}

	if _, err := c.GetOrFetch(ctx, "a", p); err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	res, err := c.FetchNextPage(ctx, "a", p)
	if err != nil {
		t.Fatalf("FetchNextPage failed: %v", err)
	}
	if len(res.Pages) != 2 || res.Pages[1].Page != 2 || !res.HasNextPage() {
		t.Errorf("Expected pages 1-2 with more to come, got %d pages", len(res.Pages))
	}

	res, err = c.FetchNextPage(ctx, "a", p)
	if err != nil {
		t.Fatalf("FetchNextPage failed: %v", err)
	}
	if len(res.Products()) != 10 || res.HasNextPage() {
		t.Errorf("Expected all 10 products and no next page, got %d", len(res.Products()))
	}

	if _, err := c.FetchNextPage(ctx, "a", p); !cerrors.IsNoNextPage(err) {
		t.Errorf("Expected ErrNoNextPage, got %v", err)
	}
	if m.Calls() != 3 {
		t.Errorf("Expected 3 loads, got %d", m.Calls())
	}
	if s := c.Stats(); s.Continuations != 2 {
		t.Errorf("Expected 2 continuations, got %d", s.Continuations)
	}
}

// TestFetchPageOutOfOrder tests that a non-adjacent page returns cached contents.
// TestFetchPageOutOfOrder 测试非相邻页码返回缓存内容。
func TestFetchPageOutOfOrder(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	c := newTestCache(t, m)
	p := limitParams(4)
	ctx := context.Background()

	res, err := c.FetchPage(ctx, "a", p, 3)
	if err != nil || len(res.Pages) != 0 || m.Calls() != 0 {
		t.Errorf("Expected empty result without loading, got %d pages, %d calls", len(res.Pages), m.Calls())
	}

	if _, err := c.FetchPage(ctx, "a", p, 1); err != nil {
		t.Fatalf("FetchPage 1 failed: %v", err)
	}
	res, _ = c.FetchPage(ctx, "a", p, 3)
	if len(res.Pages) != 1 || m.Calls() != 1 {
		t.Errorf("Expected cached page 1 only, got %d pages, %d calls", len(res.Pages), m.Calls())
	}

	res, err = c.FetchPage(ctx, "a", p, 2)
	if err != nil || len(res.Pages) != 2 {
		t.Errorf("Expected continuation to page 2, got %d pages (%v)", len(res.Pages), err)
	}
}

// TestSupersedeAbort tests that an abandoned load is aborted silently.
// TestSupersedeAbort 测试被放弃的加载被静默中止。
func TestSupersedeAbort(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	m.Hold()
	c := newTestCache(t, m)

	p1 := limitParams(4)
	p2 := p1.Clone()
	p2.Q = "chair"

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.GetOrFetch(context.Background(), "a", p1)
		done <- outcome{res, err}
	}()

	<-m.Started()
	if n := c.Supersede("a", p2.Key()); n != 1 {
		t.Errorf("Expected to detach from 1 load, got %d", n)
	}

	var got outcome
	select {
	case got = <-done:
	case <-time.After(time.Second):
		t.Fatal("Superseded load did not settle")
	}
	if got.err != nil {
		t.Errorf("Expected no error for an aborted load, got %v", got.err)
	}
	if got.res.Status != StatusPending || len(got.res.Pages) != 0 {
		t.Errorf("Expected pending result without pages, got %s", got.res.Status)
	}
	if s := c.Stats(); s.Aborts != 1 || s.NetworkErrors != 0 {
		t.Errorf("Expected 1 abort and no errors, got %+v", s)
	}

	// 中止后再次请求会重新加载
	m.Release()
	res, err := c.GetOrFetch(context.Background(), "a", p1)
	if err != nil || res.Status != StatusSettled {
		t.Errorf("Expected reload to settle, got %s (%v)", res.Status, err)
	}
	if m.Calls() != 2 {
		t.Errorf("Expected 2 loads, got %d", m.Calls())
	}
}

// TestSupersedeSharedLoad tests that a load stays alive while another owner waits.
// TestSupersedeSharedLoad 测试仍有其他所有者等待时加载不会被中止。
func TestSupersedeSharedLoad(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	m.Hold()
	c := newTestCache(t, m)
	p := limitParams(4)

	outcomes := make(chan error, 2)
	for _, owner := range []string{"a", "b"} {
		go func(owner string) {
			_, err := c.GetOrFetch(context.Background(), owner, p)
			outcomes <- err
		}(owner)
	}
	<-m.Started()
	waitFor(t, func() bool { return c.Stats().Dedups == 1 })

	if n := c.Supersede("a", "other"); n != 1 {
		t.Errorf("Expected to detach a from 1 load, got %d", n)
	}
	if n := c.Supersede("a", p.Key()); n != 0 {
		t.Errorf("Expected no loads for the current key, got %d", n)
	}
	m.Release()

	for i := 0; i < 2; i++ {
		if err := <-outcomes; err != nil {
			t.Errorf("Expected shared load to succeed, got %v", err)
		}
	}
	res, ok := c.Peek(p)
	if !ok || res.Status != StatusSettled {
		t.Errorf("Expected settled entry, got %v %s", ok, res.Status)
	}
}

// TestWaiterContext tests that a caller's context ends its wait and aborts an unowned load.
// TestWaiterContext 测试调用方上下文结束时停止等待并中止无所有者的加载。
func TestWaiterContext(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	m.Hold()
	defer m.Release()
	c := newTestCache(t, m)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.GetOrFetch(ctx, "a", limitParams(4))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	waitFor(t, func() bool { return c.Stats().InFlight == 0 })
}

// TestFirstPageError tests that a failure is stored and only retried on request.
// TestFirstPageError 测试失败被保存，且只在显式请求时重试。
func TestFirstPageError(t *testing.T) {
	products := loader.GenerateProducts(10)
	m := loader.NewMockLoader(func(p params.ProductQueryParams) (model.Page, error) {
		return model.Page{}, errors.New("connection refused")
	})
	c := newTestCache(t, m)
	p := limitParams(4)
	ctx := context.Background()

	res, err := c.GetOrFetch(ctx, "a", p)
	if !cerrors.IsNetwork(err) || res.Status != StatusErrored {
		t.Fatalf("Expected stored network error, got %s (%v)", res.Status, err)
	}
	var fe *cerrors.FetchError
	if !errors.As(err, &fe) || fe.Key != p.Key() || fe.Page != 1 {
		t.Errorf("Expected FetchError for page 1 of %q, got %v", p.Key(), err)
	}

	res, err = c.GetOrFetch(ctx, "a", p)
	if !cerrors.IsNetwork(err) || res.Status != StatusErrored || m.Calls() != 1 {
		t.Errorf("Expected cached error without reload, got %s after %d loads", res.Status, m.Calls())
	}

	m.SetResponder(loader.SlicePages(products))
	res, err = c.Retry(ctx, "a", p)
	if err != nil || res.Status != StatusSettled || res.Err != nil {
		t.Errorf("Expected retry to settle, got %s (%v)", res.Status, err)
	}
	if m.Calls() != 2 {
		t.Errorf("Expected 2 loads, got %d", m.Calls())
	}
}

// TestContinuationError tests that a failed continuation keeps earlier pages.
// TestContinuationError 测试续页失败时保留已有页面。
func TestContinuationError(t *testing.T) {
	products := loader.GenerateProducts(10)
	m := loader.NewMockLoader(loader.SlicePages(products))
	c := newTestCache(t, m)
	p := limitParams(4)
	ctx := context.Background()

	if _, err := c.GetOrFetch(ctx, "a", p); err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}

	m.SetResponder(func(q params.ProductQueryParams) (model.Page, error) {
		return model.Page{}, cerrors.NewFetchError(cerrors.ErrDecode, q.Key(), q.Page, nil)
	})
	res, err := c.FetchNextPage(ctx, "a", p)
	if !cerrors.IsDecode(err) {
		t.Errorf("Expected decode error, got %v", err)
	}
	if res.Status != StatusSettled || len(res.Pages) != 1 || res.Err == nil {
		t.Errorf("Expected settled page 1 with error kept, got %s with %d pages", res.Status, len(res.Pages))
	}

	m.SetResponder(loader.SlicePages(products))
	res, err = c.Retry(ctx, "a", p)
	if err != nil || len(res.Pages) != 2 || res.Err != nil {
		t.Errorf("Expected retry to append page 2, got %d pages (%v)", len(res.Pages), err)
	}
}

// TestEviction tests that the least recently used series is evicted.
// TestEviction 测试最近最少使用的序列被淘汰。
func TestEviction(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	c := newTestCache(t, m, WithMaxEntries(2))
	ctx := context.Background()

	keys := []string{"a", "b", "c"}
	ps := make([]params.ProductQueryParams, len(keys))
	for i, q := range keys {
		ps[i] = limitParams(4)
		ps[i].Q = q
	}

	c.GetOrFetch(ctx, "o", ps[0])
	c.GetOrFetch(ctx, "o", ps[1])
	c.GetOrFetch(ctx, "o", ps[0]) // 访问a，使b成为最久未使用
	c.GetOrFetch(ctx, "o", ps[2])

	if _, ok := c.Peek(ps[1]); ok {
		t.Error("Expected b to be evicted")
	}
	for _, i := range []int{0, 2} {
		if _, ok := c.Peek(ps[i]); !ok {
			t.Errorf("Expected %s to be cached", keys[i])
		}
	}
	if s := c.Stats(); s.Evictions != 1 || s.Entries != 2 {
		t.Errorf("Expected 1 eviction and 2 entries, got %d and %d", s.Evictions, s.Entries)
	}
}

// TestEvictionDuringLoad tests that a series evicted while its load runs is
// restored on the next request and shares that load instead of starting another.
// TestEvictionDuringLoad 测试加载进行中被淘汰的序列在下次请求时恢复并复用该加载。
func TestEvictionDuringLoad(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	m.Hold()
	c := newTestCache(t, m, WithMaxEntries(1))
	ctx := context.Background()

	a, b := limitParams(4), limitParams(4)
	a.Q, b.Q = "a", "b"

	var wg sync.WaitGroup
	results := make([]Result, 3)
	errs := make([]error, 3)
	get := func(i int, owner string, p params.ProductQueryParams) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(ctx, owner, p)
		}()
	}

	get(0, "a", a)
	<-m.Started()
	get(1, "b", b) // 淘汰a
	<-m.Started()
	waitFor(t, func() bool { return c.Stats().Evictions == 1 })

	get(2, "w", a)
	waitFor(t, func() bool { return c.Stats().Dedups == 1 })
	if s := c.Stats(); s.InFlight != 2 {
		t.Errorf("Expected 2 loads in flight, got %d", s.InFlight)
	}
	m.Release()
	wg.Wait()

	for _, i := range []int{0, 2} {
		if errs[i] != nil || results[i].Status != StatusSettled {
			t.Errorf("Caller %d: expected settled result, got %s (%v)", i, results[i].Status, errs[i])
		}
	}
	if n := m.CallsFor(a); n != 1 {
		t.Errorf("Expected 1 load for a, got %d", n)
	}

	if _, err := c.GetOrFetch(ctx, "w", a); err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if n := m.CallsFor(a); n != 1 {
		t.Errorf("Expected restored series to be a hit, got %d loads", n)
	}
	if s := c.Stats(); s.InFlight != 0 {
		t.Errorf("Expected no loads in flight, got %d", s.InFlight)
	}
}

// TestSweep tests removal of stale series.
// TestSweep 测试过期序列的清除。
func TestSweep(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	c := newTestCache(t, m, WithStaleTTL(10*time.Millisecond), WithCleanupInterval(time.Hour))
	p := limitParams(4)

	if _, err := c.GetOrFetch(context.Background(), "a", p); err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if n := c.Sweep(time.Now()); n != 0 {
		t.Errorf("Expected fresh series to survive, removed %d", n)
	}
	if n := c.Sweep(time.Now().Add(time.Second)); n != 1 {
		t.Errorf("Expected 1 stale series removed, got %d", n)
	}
	if _, ok := c.Peek(p); ok {
		t.Error("Expected stale series to be gone")
	}
	if s := c.Stats(); s.Expired != 1 || s.Entries != 0 {
		t.Errorf("Expected 1 expired and no entries, got %d and %d", s.Expired, s.Entries)
	}
}

// TestClose tests that a closed cache rejects requests.
// TestClose 测试关闭后的缓存拒绝请求。
func TestClose(t *testing.T) {
	m := loader.NewMockLoader(loader.SlicePages(loader.GenerateProducts(10)))
	c, err := New(m, nil)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if _, err := c.GetOrFetch(context.Background(), "a", params.Default()); !cerrors.IsClosed(err) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

// TestNewValidation tests constructor argument checks.
// TestNewValidation 测试构造参数校验。
func TestNewValidation(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("Expected error for nil loader")
	}
	m := loader.NewMockLoader(loader.SlicePages(nil))
	if _, err := NewWithOptions(m, WithShards(3)); err == nil {
		t.Error("Expected error for non power of two shard count")
	}
	if _, err := NewWithOptions(m, WithEviction("random")); err == nil {
		t.Error("Expected error for unknown eviction policy")
	}
}

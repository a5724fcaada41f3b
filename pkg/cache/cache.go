// Package cache provides the fetch cache for product result series.
//
// A series is keyed by the canonical encoding of its query parameters and
// holds the pages fetched so far, in fetch order. Concurrent callers for the
// same key share one in-flight load; continuation requests append the next
// page to the existing series. Loads are attributed to owners (typically one
// browse session each) so that a load superseded by newer parameters can be
// aborted without disturbing other owners waiting on it.
//
// Package cache 提供商品结果序列的请求缓存。
// 序列以查询参数的规范编码为键，按请求顺序保存已获取的页面。
// 同一键的并发调用共享一次进行中的加载；续页请求将下一页追加到已有序列。
// 加载归属于所有者（通常每个浏览会话一个），
// 因此被新参数取代的加载可以被中止，而不影响等待同一加载的其他所有者。
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/internal/eviction"
	"github.com/Humphrey-He/hcatalog/internal/metrics"
	"github.com/Humphrey-He/hcatalog/internal/storage"
	"github.com/Humphrey-He/hcatalog/internal/ttl"
	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
	"github.com/Humphrey-He/hcatalog/pkg/loader"
	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// entry is one cached series. All fields are guarded by FetchCache.mu.
// entry 是一个缓存序列，所有字段受FetchCache.mu保护。
type entry struct {
	key     string
	start   params.ProductQueryParams
	pages   []model.Page
	status  Status
	err     error
	updated time.Time
}

type flightKey struct {
	key  string
	page int
}

// flight is one in-flight page load shared by every caller for the same key and page.
// flight 是一次进行中的页面加载，由同一键和页码的所有调用方共享。
type flight struct {
	fk       flightKey
	entry    *entry
	next     bool
	cancel   context.CancelFunc
	owners   map[string]int // 所有者到等待数的映射
	done     chan struct{}
	err      error
	aborted  bool
	finished bool
}

// Stats reports cache activity together with its current size.
// Stats 报告缓存活动及当前规模。
type Stats struct {
	metrics.Snapshot
	Entries  int64     `json:"entries"`
	InFlight int       `json:"in_flight"`
	Cleaner  ttl.Stats `json:"cleaner"`
}

// FetchCache maps canonical parameter keys to fetched page series.
// FetchCache 将规范参数键映射到已获取的页面序列。
type FetchCache struct {
	mu       sync.Mutex
	config   *Config
	loader   loader.Loader
	entries  *storage.Store[*entry]
	policy   eviction.Policy
	flights  map[flightKey]*flight
	inflight map[string]int
	metrics  *metrics.Metrics
	cleaner  *ttl.Cleaner
	logger   *zap.Logger
	baseCtx  context.Context
	stop     context.CancelFunc
	closed   bool
}

// New creates a fetch cache loading pages through l.
//
// New 创建一个通过l加载页面的请求缓存。
//
// Parameters:
//   - l: The page loader
//   - config: The cache configuration, nil for defaults
//
// Returns:
//   - *FetchCache: The created cache
//   - error: An error if the configuration is invalid
func New(l loader.Loader, config *Config) (*FetchCache, error) {
	if l == nil {
		return nil, errors.New("cache: loader is required")
	}
	if config == nil {
		config = NewDefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	policy, err := eviction.New(config.EvictionPolicy, config.MaxEntries)
	if err != nil {
		return nil, err
	}

	var prom *metrics.Collectors
	if config.Registerer != nil {
		prom = metrics.NewCollectors(config.Registerer, config.MetricsNamespace)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseCtx, stop := context.WithCancel(context.Background())
	c := &FetchCache{
		config:   config,
		loader:   l,
		entries:  storage.NewStore[*entry](&storage.Config{ShardCount: config.ShardCount}),
		policy:   policy,
		flights:  make(map[flightKey]*flight),
		inflight: make(map[string]int),
		metrics:  metrics.New(prom),
		logger:   logger.With(zap.String("cache", config.Name)),
		baseCtx:  baseCtx,
		stop:     stop,
	}
	if config.StaleTTL > 0 {
		c.cleaner = ttl.NewCleaner(c, config.CleanupInterval)
	}
	return c, nil
}

// NewWithOptions creates a fetch cache from the default configuration modified by options.
//
// NewWithOptions 使用默认配置并应用选项后创建请求缓存。
func NewWithOptions(l loader.Loader, options ...Option) (*FetchCache, error) {
	config := NewDefaultConfig()
	for _, option := range options {
		option(config)
	}
	return New(l, config)
}

// GetOrFetch returns the series for p, loading its first page if needed.
// It blocks until that page settles or ctx ends.
//
// A settled or errored series is returned as stored; an errored one also
// returns its error and is not retried (see Retry). A pending series with a
// load in flight is joined rather than loaded twice. When the load is aborted
// because every owner waiting on it moved on, the result is pending and the
// error is nil.
//
// GetOrFetch 返回p对应的序列，必要时加载第一页，阻塞直到该页完成或ctx结束。
// 已完成或失败的序列按原样返回，失败的序列同时返回其错误且不会自动重试（见Retry）。
// 正在加载的序列会复用同一次加载。加载因所有等待者离开而被中止时，
// 返回pending状态的结果且错误为nil。
//
// Parameters:
//   - ctx: Bounds how long this caller waits
//   - owner: Identifies the caller for Supersede
//   - p: The query parameters; p.Page is the first page of the series
//
// Returns:
//   - Result: A snapshot of the series
//   - error: A network or decode error, ctx.Err() if ctx ended, or ErrClosed
func (c *FetchCache) GetOrFetch(ctx context.Context, owner string, p params.ProductQueryParams) (Result, error) {
	p = p.Normalize()
	key := p.Key()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{Key: key, Params: p}, cerrors.ErrClosed
	}

	e, ok := c.lookupLocked(key)
	if !ok {
		// 条目被淘汰但其加载仍在进行时，恢复该条目并复用加载
		if e = c.orphanLocked(key); e != nil {
			c.insertLocked(e)
			ok = true
		}
	}
	if ok {
		switch e.status {
		case StatusSettled:
			c.metrics.RecordHit()
			res := c.resultLocked(e)
			c.mu.Unlock()
			return res, nil
		case StatusErrored:
			c.metrics.RecordHit()
			res := c.resultLocked(e)
			c.mu.Unlock()
			return res, res.Err
		}
		if f, ok := c.flights[flightKey{key: key, page: e.start.Page}]; ok {
			c.metrics.RecordDedup()
			f.owners[owner]++
			c.mu.Unlock()
			c.logger.Debug("joined in-flight load", zap.String("key", key), zap.String("owner", owner))
			return c.wait(ctx, f, owner)
		}
	} else {
		e = c.addLocked(key, p)
	}

	c.metrics.RecordMiss()
	f := c.startLocked(e, e.start.Page, false)
	f.owners[owner]++
	c.mu.Unlock()
	return c.wait(ctx, f, owner)
}

// FetchNextPage appends the page after the last fetched one to the series for p.
// Concurrent continuations for the same page share one load.
//
// FetchNextPage 将最后一页之后的页面追加到p对应的序列。同一页的并发续页请求共享一次加载。
//
// Returns:
//   - Result: The series after the continuation settled
//   - error: ErrNotFound if the series does not exist, ErrNoNextPage after
//     the last page, or the load error
func (c *FetchCache) FetchNextPage(ctx context.Context, owner string, p params.ProductQueryParams) (Result, error) {
	p = p.Normalize()
	key := p.Key()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{Key: key, Params: p}, cerrors.ErrClosed
	}

	e, ok := c.lookupLocked(key)
	if !ok {
		c.mu.Unlock()
		return Result{Key: key, Params: p}, cerrors.NewFetchError(cerrors.ErrNotFound, key, p.Page, nil)
	}
	if e.status != StatusSettled || len(e.pages) == 0 {
		// 第一页尚未完成，返回缓存当前内容
		res := c.resultLocked(e)
		c.mu.Unlock()
		return res, nil
	}

	last := e.pages[len(e.pages)-1]
	if last.IsLast() {
		res := c.resultLocked(e)
		c.mu.Unlock()
		return res, cerrors.ErrNoNextPage
	}

	fk := flightKey{key: key, page: last.Page + 1}
	if f, ok := c.flights[fk]; ok {
		c.metrics.RecordDedup()
		f.owners[owner]++
		c.mu.Unlock()
		return c.wait(ctx, f, owner)
	}

	e.err = nil
	f := c.startLocked(e, fk.page, true)
	f.owners[owner]++
	c.mu.Unlock()
	return c.wait(ctx, f, owner)
}

// FetchPage requests page of the series for p. The page right after the last
// fetched one is a continuation; any other page returns the series as cached.
//
// FetchPage 请求p对应序列的指定页。紧接最后一页的页码视为续页，其余页码返回缓存的当前内容。
func (c *FetchCache) FetchPage(ctx context.Context, owner string, p params.ProductQueryParams, page int) (Result, error) {
	p = p.Normalize()
	key := p.Key()

	c.mu.Lock()
	e, ok := c.lookupLocked(key)
	if !ok {
		c.mu.Unlock()
		if page == p.Page {
			return c.GetOrFetch(ctx, owner, p)
		}
		return Result{Key: key, Params: p}, nil
	}
	res := c.resultLocked(e)
	c.mu.Unlock()

	if res.Status == StatusSettled && res.HasNextPage() && page == res.NextPage() {
		return c.FetchNextPage(ctx, owner, p)
	}
	return res, nil
}

// Retry re-issues the failed load of the series for p: the first page of an
// errored series, or the continuation that failed last. Other series are
// returned as GetOrFetch would.
//
// Retry 重新发起p对应序列中失败的加载：失败序列的第一页，或最近失败的续页。
// 其他序列按GetOrFetch的方式返回。
func (c *FetchCache) Retry(ctx context.Context, owner string, p params.ProductQueryParams) (Result, error) {
	p = p.Normalize()
	key := p.Key()

	c.mu.Lock()
	continuation := false
	if e, ok := c.lookupLocked(key); ok {
		switch {
		case e.status == StatusErrored:
			e.status = StatusPending
			e.err = nil
		case e.status == StatusSettled && e.err != nil:
			continuation = true
		}
	}
	c.mu.Unlock()

	c.logger.Info("retrying load", zap.String("key", key), zap.Bool("continuation", continuation))
	if continuation {
		return c.FetchNextPage(ctx, owner, p)
	}
	return c.GetOrFetch(ctx, owner, p)
}

// Supersede detaches owner from every in-flight load whose key is not
// currentKey. Loads left without owners are aborted; their settlement never
// writes the cache and never reports an error.
//
// Supersede 使owner脱离所有键不为currentKey的进行中加载。
// 失去所有所有者的加载会被中止，其结果既不写入缓存也不报告错误。
//
// Returns:
//   - int: The number of loads owner was detached from
func (c *FetchCache) Supersede(owner, currentKey string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for fk, f := range c.flights {
		if fk.key == currentKey {
			continue
		}
		if _, ok := f.owners[owner]; !ok {
			continue
		}
		delete(f.owners, owner)
		n++
		if len(f.owners) == 0 {
			f.cancel()
			c.logger.Debug("aborting superseded load", zap.String("key", fk.key), zap.Int("page", fk.page))
		}
	}
	return n
}

// Peek returns the cached series for p without loading anything.
// Peek 返回p对应的缓存序列，不发起加载。
func (c *FetchCache) Peek(p params.ProductQueryParams) (Result, bool) {
	key := p.Normalize().Key()

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookupLocked(key)
	if !ok {
		return Result{}, false
	}
	return c.resultLocked(e), true
}

// Stats returns cache activity and size.
// Stats 返回缓存活动和规模。
func (c *FetchCache) Stats() Stats {
	c.mu.Lock()
	inFlight := len(c.flights)
	c.mu.Unlock()

	s := Stats{
		Snapshot: c.metrics.GetSnapshot(),
		Entries:  c.entries.Count(),
		InFlight: inFlight,
	}
	if c.cleaner != nil {
		s.Cleaner = c.cleaner.GetStats()
	}
	return s
}

// Sweep removes series that went stale before now. Series with a load in
// flight are kept. It implements ttl.Sweeper.
//
// Sweep 删除在now之前过期的序列，有进行中加载的序列会被保留。
func (c *FetchCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.entries.DeleteExpired(now.UnixNano(), func(item *storage.Item[*entry]) bool {
		return c.inflight[item.Key] > 0
	})
	for _, item := range removed {
		c.policy.Remove(item.Key)
	}
	if len(removed) > 0 {
		c.metrics.RecordExpired(len(removed))
		c.metrics.UpdateEntryCount(c.entries.Count())
		c.logger.Debug("removed stale series", zap.Int("count", len(removed)))
	}
	return len(removed)
}

// Close aborts every in-flight load and stops the cleaner.
// Later calls return ErrClosed.
//
// Close 中止所有进行中的加载并停止清理器，之后的调用返回ErrClosed。
func (c *FetchCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.stop()
	if c.cleaner != nil {
		c.cleaner.Close()
	}
	return nil
}

func (c *FetchCache) lookupLocked(key string) (*entry, bool) {
	e, ok := c.entries.Get(key)
	if ok {
		c.policy.Access(key)
	}
	return e, ok
}

func (c *FetchCache) addLocked(key string, p params.ProductQueryParams) *entry {
	e := &entry{key: key, start: p.Clone(), status: StatusPending, updated: time.Now()}
	c.insertLocked(e)
	return e
}

// insertLocked stores e and evicts whatever the policy chooses to make room.
// insertLocked 存入e，并淘汰策略选出的条目。
func (c *FetchCache) insertLocked(e *entry) {
	c.entries.Set(e.key, e, c.expireAt())

	victims := c.policy.Add(e.key)
	for _, v := range victims {
		c.entries.Delete(v)
	}
	if len(victims) > 0 {
		c.metrics.RecordEviction(len(victims))
		c.logger.Debug("evicted series", zap.Strings("keys", victims))
	}
	c.metrics.UpdateEntryCount(c.entries.Count())
}

// orphanLocked returns the entry of a live flight for key whose entry is no
// longer stored, or nil.
func (c *FetchCache) orphanLocked(key string) *entry {
	if c.inflight[key] == 0 {
		return nil
	}
	for fk, f := range c.flights {
		if fk.key == key {
			return f.entry
		}
	}
	return nil
}

func (c *FetchCache) expireAt() int64 {
	if c.config.StaleTTL <= 0 {
		return 0
	}
	return time.Now().Add(c.config.StaleTTL).UnixNano()
}

func (c *FetchCache) resultLocked(e *entry) Result {
	res := Result{
		Key:       e.key,
		Params:    e.start.Clone(),
		Pages:     append([]model.Page(nil), e.pages...),
		Status:    e.status,
		Err:       e.err,
		UpdatedAt: e.updated,
	}
	if len(e.pages) > 0 {
		next := e.pages[len(e.pages)-1].Page + 1
		_, res.FetchingNext = c.flights[flightKey{key: e.key, page: next}]
	}
	return res
}

func (c *FetchCache) startLocked(e *entry, page int, next bool) *flight {
	ctx, cancel := context.WithCancel(c.baseCtx)
	f := &flight{
		fk:     flightKey{key: e.key, page: page},
		entry:  e,
		next:   next,
		cancel: cancel,
		owners: make(map[string]int),
		done:   make(chan struct{}),
	}
	c.flights[f.fk] = f
	c.inflight[e.key]++
	c.metrics.RecordFetch(next)

	req := e.start.Clone()
	req.Page = page
	c.logger.Debug("load started", zap.String("key", e.key), zap.Int("page", page), zap.Bool("next", next))

	go c.run(ctx, f, req)
	return f
}

// run performs the load for f and settles it.
// run 执行f的加载并完成它。
func (c *FetchCache) run(ctx context.Context, f *flight, req params.ProductQueryParams) {
	start := time.Now()
	page, err := c.loader.Load(ctx, req)
	latency := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	f.cancel()
	f.finished = true
	if c.flights[f.fk] == f {
		delete(c.flights, f.fk)
	}
	if c.inflight[f.fk.key]--; c.inflight[f.fk.key] <= 0 {
		delete(c.inflight, f.fk.key)
	}

	e := f.entry
	switch {
	case err == nil:
		c.applyLocked(e, f, page)
		c.metrics.RecordResult("ok", latency)
		c.logger.Debug("load settled",
			zap.String("key", e.key), zap.Int("page", f.fk.page),
			zap.Int("items", len(page.Data)), zap.Int("total", page.Total),
			zap.Duration("latency", latency))

	case ctx.Err() != nil || cerrors.IsAborted(err):
		// 中止的加载不写入条目，也不对等待者报告错误
		f.aborted = true
		c.metrics.RecordResult("aborted", latency)
		c.logger.Debug("load aborted", zap.String("key", e.key), zap.Int("page", f.fk.page))

	default:
		if !cerrors.IsNetwork(err) && !cerrors.IsDecode(err) {
			err = cerrors.NewFetchError(cerrors.ErrNetwork, e.key, f.fk.page, err)
		}
		f.err = err
		e.err = err
		if !f.next {
			e.status = StatusErrored
		}
		e.updated = time.Now()
		c.metrics.RecordResult(cerrors.KindOf(err), latency)
		c.logger.Warn("load failed",
			zap.String("key", e.key), zap.Int("page", f.fk.page),
			zap.String("kind", cerrors.KindOf(err)), zap.Error(err))
	}
	close(f.done)
}

func (c *FetchCache) applyLocked(e *entry, f *flight, page model.Page) {
	if page.Page == 0 {
		page.Page = f.fk.page
	}

	if !f.next {
		e.pages = []model.Page{page}
	} else {
		// 只在序列仍以前一页结尾时追加
		if n := len(e.pages); n == 0 || e.pages[n-1].Page+1 != f.fk.page {
			return
		}
		e.pages = append(e.pages, page)
	}
	e.status = StatusSettled
	e.err = nil
	e.updated = time.Now()

	if item, ok := c.entries.Peek(e.key); ok && item.Value == e {
		c.entries.Touch(e.key, c.expireAt())
	}
}

// wait blocks until f settles or ctx ends.
// wait 阻塞直到f完成或ctx结束。
func (c *FetchCache) wait(ctx context.Context, f *flight, owner string) (Result, error) {
	select {
	case <-f.done:
		c.mu.Lock()
		res := c.resultLocked(f.entry)
		c.mu.Unlock()
		if f.aborted {
			return res, nil
		}
		return res, f.err

	case <-ctx.Done():
		c.mu.Lock()
		if n := f.owners[owner]; n > 1 {
			f.owners[owner] = n - 1
		} else {
			delete(f.owners, owner)
		}
		if len(f.owners) == 0 && !f.finished {
			f.cancel()
		}
		res := c.resultLocked(f.entry)
		c.mu.Unlock()
		return res, ctx.Err()
	}
}

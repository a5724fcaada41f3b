// Package catalog ties the parameter store, the URL query, and the fetch
// cache into one browse session.
//
// Every commit to the session's store republishes the URL query and
// supersedes the session's loads for older parameters, so a fetch begun for
// stale parameters neither writes the cache nor surfaces an error.
//
// Package catalog 将参数存储、URL查询串和请求缓存组合为一个浏览会话。
// 会话存储的每次提交都会重新发布URL查询串，并取代该会话针对旧参数的加载，
// 因此针对过期参数发起的请求既不会写入缓存，也不会暴露错误。
package catalog

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/pkg/cache"
	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/params"
	"github.com/Humphrey-He/hcatalog/pkg/store"
)

// DefaultInputDelay is the quiet period of the search and price inputs.
const DefaultInputDelay = 500 * time.Millisecond

// FacetSource lists the filter options of the whole catalog.
// FacetSource 提供整个目录的筛选项。
type FacetSource interface {
	Facets(ctx context.Context) (model.Facets, error)
}

// Option configures a Session.
type Option func(*Session)

// WithSearchDelay sets the quiet period of the search input.
func WithSearchDelay(d time.Duration) Option {
	return func(s *Session) { s.searchDelay = d }
}

// WithPriceDelay sets the quiet period of the price range input.
func WithPriceDelay(d time.Duration) Option {
	return func(s *Session) { s.priceDelay = d }
}

// WithFacets sets where the view's filter options come from.
func WithFacets(src FacetSource) Option {
	return func(s *Session) { s.facets = src }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithID sets the owner id; by default a random UUID is used.
// WithID 设置所有者id，默认使用随机UUID。
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithDefaultLimit sets the page size used when the initial query names none.
func WithDefaultLimit(n int) Option {
	return func(s *Session) { s.defaultLimit = n }
}

// Session is one user's browse state.
// Session 表示一个用户的浏览状态。
type Session struct {
	id           string
	cache        *cache.FetchCache
	store        *store.Store
	location     *store.Location
	search       *store.DebouncedInput[string]
	price        *store.DebouncedInput[store.PriceRange]
	facets       FacetSource
	logger       *zap.Logger
	unsubscribe  func()
	searchDelay  time.Duration
	priceDelay   time.Duration
	defaultLimit int
}

// NewSession starts a session at the parameters decoded from rawQuery.
//
// NewSession 以从rawQuery解码的参数启动会话。
//
// Parameters:
//   - rawQuery: The initial URL query string, with or without a leading '?'
//   - c: The fetch cache shared by sessions
//   - options: Optional settings
//
// Returns:
//   - *Session: The new session
func NewSession(rawQuery string, c *cache.FetchCache, options ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		cache:       c,
		logger:      zap.NewNop(),
		searchDelay: DefaultInputDelay,
		priceDelay:  DefaultInputDelay,
	}
	for _, option := range options {
		option(s)
	}

	s.store = store.New(s.decode(rawQuery))
	s.location = store.NewLocation(params.Encode(s.store.Current()))
	s.search = store.NewSearchInput(s.store, s.searchDelay)
	s.price = store.NewPriceRangeInput(s.store, s.priceDelay)
	s.logger = s.logger.With(zap.String("session", s.id))

	s.unsubscribe = s.store.Subscribe(func(p params.ProductQueryParams) {
		s.location.Publish(p)
		if n := s.cache.Supersede(s.id, p.Key()); n > 0 {
			s.logger.Debug("superseded stale loads", zap.Int("count", n), zap.String("key", p.Key()))
		}
	})
	return s
}

// ID returns the owner id the session loads under.
func (s *Session) ID() string {
	return s.id
}

// Params returns the committed parameters.
// Params 返回已提交的参数。
func (s *Session) Params() params.ProductQueryParams {
	return s.store.Current()
}

// Query returns the current URL query string.
// Query 返回当前URL查询串。
func (s *Session) Query() string {
	return s.location.Query()
}

// History returns every URL query the session published, oldest first.
func (s *Session) History() []string {
	return s.location.History()
}

// SearchText returns the echo of the search input.
// SearchText 返回搜索框的回显值。
func (s *Session) SearchText() string {
	return s.search.Value()
}

// PriceInput returns the echo of the price range input.
func (s *Session) PriceInput() store.PriceRange {
	return s.price.Value()
}

// Store returns the session's parameter store.
func (s *Session) Store() *store.Store {
	return s.store
}

// ToggleCategory adds or removes a category filter.
func (s *Session) ToggleCategory(category string) params.ProductQueryParams {
	return s.store.Commit(store.ToggleCategory(category))
}

// SetTier sets the tier filter; "" or "all" clears it.
func (s *Session) SetTier(tier string) params.ProductQueryParams {
	return s.store.Commit(store.SetTier(tier))
}

// SetTheme sets the theme filter; "" or "all" clears it.
func (s *Session) SetTheme(theme string) params.ProductQueryParams {
	return s.store.Commit(store.SetTheme(theme))
}

// SetPriceSort sorts by price in order; "" or "all" clears the sort.
// SetPriceSort 按价格以order方向排序，""或"all"清除排序。
func (s *Session) SetPriceSort(order string) params.ProductQueryParams {
	return s.store.Commit(store.SetPriceSort(order))
}

// SetPriceRange commits a price range at once and syncs the price input echo.
// SetPriceRange 立即提交价格区间并同步价格输入的回显。
func (s *Session) SetPriceRange(lo, hi *float64) params.ProductQueryParams {
	s.price.Sync(store.PriceRange{Min: lo, Max: hi})
	return s.store.Commit(store.SetPriceRange(lo, hi))
}

// SlidePrice records a price range from a continuously moving control and commits it once the control rests.
// SlidePrice 记录连续拖动控件给出的价格区间，控件静止后再提交。
func (s *Session) SlidePrice(lo, hi *float64) {
	s.price.Input(store.PriceRange{Min: lo, Max: hi})
}

// TypeSearch records search text and commits it once typing pauses.
// TypeSearch 记录搜索文本，输入停顿后再提交。
func (s *Session) TypeSearch(text string) {
	s.search.Input(text)
}

// FlushInputs commits any pending search or price input now.
// FlushInputs 立即提交所有等待中的搜索或价格输入。
func (s *Session) FlushInputs() {
	s.search.Flush()
	s.price.Flush()
}

// GoToPage starts the series at page n.
func (s *Session) GoToPage(n int) params.ProductQueryParams {
	return s.store.Commit(store.GoToPage(n))
}

// Navigate replaces the parameters with those decoded from rawQuery,
// as when the user follows a link or goes back in history.
//
// Navigate 以从rawQuery解码的参数替换当前参数，例如用户点击链接或后退时。
func (s *Session) Navigate(rawQuery string) params.ProductQueryParams {
	next := s.decode(rawQuery).Normalize()
	s.search.Sync(next.Q)
	s.price.Sync(store.PriceRange{Min: next.PriceGTE, Max: next.PriceLTE})
	return s.store.Commit(func(params.ProductQueryParams) params.ProductQueryParams { return next })
}

// Reset returns to the unfiltered first page and clears the input echoes.
// Reset 清除所有筛选、排序以及输入回显。
func (s *Session) Reset() params.ProductQueryParams {
	s.search.Sync("")
	s.price.Sync(store.PriceRange{})
	return s.store.Commit(store.Reset())
}

// Load returns the series for the committed parameters, loading its first page if needed.
// Load 返回已提交参数对应的序列，必要时加载第一页。
func (s *Session) Load(ctx context.Context) (cache.Result, error) {
	return s.cache.GetOrFetch(ctx, s.id, s.store.Current())
}

// LoadMore appends the next page to the current series.
// LoadMore 将下一页追加到当前序列。
func (s *Session) LoadMore(ctx context.Context) (cache.Result, error) {
	return s.cache.FetchNextPage(ctx, s.id, s.store.Current())
}

// Retry re-issues the failed load of the current series.
// Retry 重新发起当前序列失败的加载。
func (s *Session) Retry(ctx context.Context) (cache.Result, error) {
	s.logger.Info("manual retry", zap.String("key", s.store.Current().Key()))
	return s.cache.Retry(ctx, s.id, s.store.Current())
}

// Close stops the inputs and detaches the session from its loads.
// Close 停止输入并使会话脱离其加载。
func (s *Session) Close() {
	s.search.Close()
	s.price.Close()
	s.unsubscribe()
	s.cache.Supersede(s.id, "")
}

// decode 解码查询串，未指定_limit时使用会话的默认每页数量
func (s *Session) decode(rawQuery string) params.ProductQueryParams {
	p := params.Decode(rawQuery)
	if s.defaultLimit > 0 && !hasKey(rawQuery, params.KeyLimit) {
		p.Limit = s.defaultLimit
	}
	return p
}

func hasKey(rawQuery, key string) bool {
	values, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	return values.Get(key) != ""
}

// Package client provides the HTTP loader for the product listing API.
//
// The API serves GET /products filtered by the canonical query string and
// reports the unpaginated match count in the X-Total-Count header.
//
// Package client 提供商品列表接口的HTTP加载器。
// 接口以规范查询串过滤 GET /products，并在 X-Total-Count 响应头中返回未分页的匹配总数。
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// TotalCountHeader carries the unpaginated match count.
const TotalCountHeader = "X-Total-Count"

const defaultTracerName = "hcatalog/client"

// Client loads product pages and facets from the listing API.
// It implements loader.Loader.
//
// Client 从列表接口加载商品分页和筛选项，实现了loader.Loader。
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer

	group  singleflight.Group
	mu     sync.Mutex
	facets *model.Facets
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
// WithTimeout 设置单次请求超时。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerName sets the name of the tracer taken from the global provider.
func WithTracerName(name string) Option {
	return func(c *Client) {
		c.tracer = otel.Tracer(name)
	}
}

// New creates a client for the API rooted at baseURL.
//
// New 创建以baseURL为根地址的客户端。
//
// Parameters:
//   - baseURL: The API origin, e.g. http://localhost:3000
//   - options: Optional settings
//
// Returns:
//   - *Client: The created client
//   - error: ErrMissingBaseURL if baseURL is empty
func New(baseURL string, options ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, cerrors.ErrMissingBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(defaultTracerName),
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Load fetches the page described by p.
//
// A cancelled ctx yields ErrAborted, a transport failure or a status of 400
// or above yields ErrNetwork, and a body that is not a product array yields
// ErrDecode. The reported limit and page come from p; the total comes from
// the X-Total-Count header and falls back to 0.
//
// Load 获取p描述的页面。
// ctx被取消时返回ErrAborted，传输失败或状态码不小于400时返回ErrNetwork，
// 响应体不是商品数组时返回ErrDecode。limit和page取自p，total取自X-Total-Count响应头，缺失时为0。
func (c *Client) Load(ctx context.Context, p params.ProductQueryParams) (model.Page, error) {
	key := p.Key()
	ctx, span := c.tracer.Start(ctx, "catalog.load",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("catalog.key", key),
			attribute.Int("catalog.page", p.Page),
		))
	defer span.End()

	start := time.Now()
	var data []model.Product
	resp, err := c.get(ctx, "/products?"+params.Encode(p), &data)
	if err != nil {
		err = c.classify(ctx, key, p.Page, resp, err)
		if !cerrors.IsAborted(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, cerrors.KindOf(err))
		}
		c.logger.Debug("product request failed",
			zap.String("key", key), zap.Int("page", p.Page),
			zap.String("kind", cerrors.KindOf(err)), zap.Error(err))
		return model.Page{}, err
	}

	page := model.Page{
		Data:  data,
		Limit: p.Limit,
		Page:  p.Page,
		Total: totalCount(resp.Header.Get(TotalCountHeader)),
	}
	if page.Limit <= 0 {
		page.Limit = len(data)
	}
	if page.Page <= 0 {
		page.Page = 1
	}

	span.SetAttributes(
		attribute.Int("catalog.items", len(data)),
		attribute.Int("catalog.total", page.Total),
	)
	c.logger.Debug("product request",
		zap.String("key", key), zap.Int("page", page.Page),
		zap.Int("items", len(data)), zap.Int("total", page.Total),
		zap.Duration("latency", time.Since(start)))
	return page, nil
}

// Facets returns the filter options of the whole catalog.
// Concurrent calls share one request; the result is kept until ResetFacets.
//
// Facets 返回整个目录的筛选项。并发调用共享一次请求，结果保留到ResetFacets为止。
func (c *Client) Facets(ctx context.Context) (model.Facets, error) {
	c.mu.Lock()
	if c.facets != nil {
		f := *c.facets
		c.mu.Unlock()
		return f, nil
	}
	c.mu.Unlock()

	// 共享请求不随任一调用方取消，超时由http.Client约束
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan("facets", func() (interface{}, error) {
		c.mu.Lock()
		if c.facets != nil {
			f := *c.facets
			c.mu.Unlock()
			return f, nil
		}
		c.mu.Unlock()

		ctx, span := c.tracer.Start(shared, "catalog.facets", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		var all []model.Product
		resp, err := c.get(ctx, "/products", &all)
		if err != nil {
			err = c.classify(ctx, "", 0, resp, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, cerrors.KindOf(err))
			return nil, err
		}

		f := model.BuildFacets(all)
		c.mu.Lock()
		c.facets = &f
		c.mu.Unlock()
		c.logger.Debug("facets loaded",
			zap.Int("products", len(all)),
			zap.Int("categories", len(f.Categories)),
			zap.Float64("max_price", f.MaxPrice))
		return f, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return model.Facets{}, r.Err
		}
		if r.Shared {
			c.logger.Debug("facets request shared")
		}
		return r.Val.(model.Facets), nil
	case <-ctx.Done():
		return model.Facets{}, ctx.Err()
	}
}

// ResetFacets drops the memoized facets.
// ResetFacets 丢弃缓存的筛选项。
func (c *Client) ResetFacets() {
	c.mu.Lock()
	c.facets = nil
	c.mu.Unlock()
}

// statusError reports an HTTP status of 400 or above.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// decodeError reports a body that failed to parse.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "invalid response body: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func (c *Client) get(ctx context.Context, path string, out interface{}) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return resp, &statusError{code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp, &decodeError{err: err}
	}
	return resp, nil
}

// classify maps a request failure to the catalog error kinds.
func (c *Client) classify(ctx context.Context, key string, page int, resp *http.Response, err error) error {
	var (
		se *statusError
		de *decodeError
	)
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return cerrors.NewFetchError(cerrors.ErrAborted, key, page, ctx.Err())
	case errors.As(err, &de):
		return cerrors.NewFetchError(cerrors.ErrDecode, key, page, de.err)
	case errors.As(err, &se):
		fe := cerrors.NewFetchError(cerrors.ErrNetwork, key, page, nil)
		fe.Status = se.code
		return fe
	default:
		fe := cerrors.NewFetchError(cerrors.ErrNetwork, key, page, err)
		if resp != nil {
			fe.Status = resp.StatusCode
		}
		return fe
	}
}

// totalCount parses the total header; absent, invalid or negative values are 0.
func totalCount(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Package loader provides the interface through which the fetch cache loads
// one page of products on a miss, plus wrappers that shape outbound load.
//
// Package loader 提供请求缓存在未命中时加载一页商品的接口，以及控制外发负载的包装器。
package loader

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// Loader is the interface that wraps the basic Load method.
//
// Load fetches the page described by p (p.Page is the page to fetch).
// Implementations must honor ctx cancellation and return an error wrapping
// errors.ErrAborted when the context ends before the response arrives.
//
// Loader 是包装基本Load方法的接口。
//
// Load 获取p描述的页面（p.Page即要获取的页码）。
// 实现必须响应ctx取消，并在响应到达前上下文结束时返回包装了errors.ErrAborted的错误。
type Loader interface {
	Load(ctx context.Context, p params.ProductQueryParams) (model.Page, error)
}

// LoaderFunc is a function type that implements the Loader interface.
//
// LoaderFunc 是实现Loader接口的函数类型。
type LoaderFunc func(ctx context.Context, p params.ProductQueryParams) (model.Page, error)

// Load calls the function itself.
//
// Load 调用函数本身。
func (f LoaderFunc) Load(ctx context.Context, p params.ProductQueryParams) (model.Page, error) {
	return f(ctx, p)
}

// RateLimitedLoader throttles calls to a backend loader with a token bucket.
// Waiting honors ctx, so a superseded fetch stops waiting at once.
//
// RateLimitedLoader 使用令牌桶限制对后端加载器的调用。等待过程响应ctx。
type RateLimitedLoader struct {
	Backend Loader
	limiter *rate.Limiter
}

// NewRateLimitedLoader wraps backend with a limit of perSecond loads and the given burst.
// A non-positive perSecond returns backend unchanged.
//
// NewRateLimitedLoader 以每秒perSecond次和指定突发量包装backend。
// perSecond不为正时原样返回backend。
//
// Parameters:
//   - backend: The loader to throttle
//   - perSecond: Sustained loads per second
//   - burst: Maximum burst size, at least 1
//
// Returns:
//   - Loader: The throttled loader
func NewRateLimitedLoader(backend Loader, perSecond float64, burst int) Loader {
	if perSecond <= 0 {
		return backend
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedLoader{
		Backend: backend,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Load waits for a token then calls the backend.
//
// Load 等待令牌后调用后端。
func (l *RateLimitedLoader) Load(ctx context.Context, p params.ProductQueryParams) (model.Page, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return model.Page{}, WaitError(ctx, p, err)
	}
	return l.Backend.Load(ctx, p)
}

// SetLimit changes the sustained rate, for configuration hot reload.
// A non-positive perSecond lifts the limit.
// SetLimit 修改持续速率，用于配置热更新。perSecond不为正时取消限制。
func (l *RateLimitedLoader) SetLimit(perSecond float64, burst int) {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	l.limiter.SetLimit(limit)
	if burst >= 1 {
		l.limiter.SetBurst(burst)
	}
}

// WaitError classifies an error from waiting on ctx: a cancelled context is
// an abort, anything else (such as a deadline) is a network failure.
//
// WaitError 对等待ctx时的错误进行分类：上下文被取消视为中止，其余（如超时）视为网络错误。
func WaitError(ctx context.Context, p params.ProductQueryParams, err error) error {
	kind := cerrors.ErrNetwork
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		kind = cerrors.ErrAborted
	}
	return cerrors.NewFetchError(kind, p.Key(), p.Page, err)
}

package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/pkg/cache"
	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/pagination"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// View is what a product grid shows for the committed parameters.
// View 是商品网格针对已提交参数展示的内容。
type View struct {
	Query        string                    `json:"query"`
	Params       params.ProductQueryParams `json:"params"`
	SearchText   string                    `json:"searchText"`
	Products     []model.Product           `json:"products"`
	Status       cache.Status              `json:"status"`
	Err          error                     `json:"-"`
	Error        string                    `json:"error,omitempty"`
	Retryable    bool                      `json:"retryable"`
	Total        int                       `json:"total"`
	Pagination   *pagination.View          `json:"pagination,omitempty"`
	HasNextPage  bool                      `json:"hasNextPage"`
	FetchingNext bool                      `json:"fetchingNext"`
	Empty        bool                      `json:"empty"`
	Facets       *model.Facets             `json:"facets,omitempty"`
}

// View loads the current series if needed and returns its view.
// Fetch failures are reported in the view; the returned error is only
// set when ctx ended or the cache is closed.
//
// View 在需要时加载当前序列并返回其视图。请求失败体现在视图中，
// 只有ctx结束或缓存已关闭时才返回错误。
func (s *Session) View(ctx context.Context) (View, error) {
	res, err := s.Load(ctx)
	if err != nil && (ctx.Err() != nil || cerrors.IsClosed(err)) {
		return View{}, err
	}
	return s.render(ctx, res), nil
}

// Snapshot returns the view of what is cached now without loading.
// Snapshot 返回当前缓存内容的视图，不发起加载。
func (s *Session) Snapshot(ctx context.Context) View {
	res, ok := s.cache.Peek(s.store.Current())
	if !ok {
		p := s.store.Current()
		res = cache.Result{Key: p.Key(), Params: p, Status: cache.StatusPending}
	}
	return s.render(ctx, res)
}

func (s *Session) render(ctx context.Context, res cache.Result) View {
	p := s.store.Current()
	v := View{
		Query:        s.location.Query(),
		Params:       p,
		SearchText:   s.search.Value(),
		Products:     res.Products(),
		Status:       res.Status,
		Total:        res.Total(),
		HasNextPage:  res.HasNextPage(),
		FetchingNext: res.FetchingNext,
	}

	// 中止不属于失败，不展示
	if res.Err != nil && !cerrors.IsAborted(res.Err) {
		v.Err = res.Err
		v.Error = res.Err.Error()
		v.Retryable = cerrors.IsRetryable(res.Err)
	}
	v.Empty = res.Status == cache.StatusSettled && len(v.Products) == 0

	if last, ok := res.LastPage(); ok {
		if n := res.TotalPages(); n > 1 {
			pv := pagination.Build(last.Page, n)
			v.Pagination = &pv
		}
	}

	if s.facets != nil {
		f, err := s.facets.Facets(ctx)
		if err != nil {
			s.logger.Warn("facets unavailable", zap.Error(err))
		} else {
			v.Facets = &f
		}
	}
	return v
}

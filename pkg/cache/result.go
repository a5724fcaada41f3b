package cache

import (
	"time"

	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/pagination"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// Status is the fetch state of a cached series.
// Status 表示缓存序列的请求状态。
type Status int

const (
	// StatusPending means the first page has not settled yet.
	// StatusPending 表示第一页尚未完成。
	StatusPending Status = iota

	// StatusSettled means at least the first page is available.
	// StatusSettled 表示至少第一页已可用。
	StatusSettled

	// StatusErrored means the first page failed and no retry was made yet.
	// StatusErrored 表示第一页请求失败且尚未重试。
	StatusErrored
)

// String returns the status name.
// String 返回状态名称。
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSettled:
		return "settled"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is a snapshot of one cached series.
// Pages are in fetch order; the slice is a private copy.
//
// Result 是某个缓存序列的快照。Pages按请求顺序排列，切片为私有副本。
type Result struct {
	Key          string                    `json:"key"`
	Params       params.ProductQueryParams `json:"params"`
	Pages        []model.Page              `json:"pages"`
	Status       Status                    `json:"status"`
	Err          error                     `json:"-"`
	FetchingNext bool                      `json:"fetchingNext"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
}

// LastPage returns the most recently appended page.
// LastPage 返回最近追加的页面。
func (r Result) LastPage() (model.Page, bool) {
	if len(r.Pages) == 0 {
		return model.Page{}, false
	}
	return r.Pages[len(r.Pages)-1], true
}

// HasNextPage reports whether a continuation may be requested.
// The last page ends the series when it holds fewer items than its limit.
//
// HasNextPage 判断是否可以请求续页。最后一页条目数少于limit时序列结束。
func (r Result) HasNextPage() bool {
	last, ok := r.LastPage()
	return ok && !last.IsLast()
}

// NextPage returns the page number a continuation would fetch.
// NextPage 返回续页请求将获取的页码。
func (r Result) NextPage() int {
	last, ok := r.LastPage()
	if !ok {
		return r.Params.Page
	}
	return last.Page + 1
}

// Products returns every fetched product, in page order.
// Products 按页顺序返回所有已获取的商品。
func (r Result) Products() []model.Product {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Data)
	}
	out := make([]model.Product, 0, n)
	for _, p := range r.Pages {
		out = append(out, p.Data...)
	}
	return out
}

// Total returns the server-reported item count from the last page.
// Total 返回最后一页中服务端报告的条目总数。
func (r Result) Total() int {
	last, _ := r.LastPage()
	return last.Total
}

// TotalPages returns ceil(total/limit) using the last page's total and limit.
// TotalPages 使用最后一页的总数和limit计算总页数。
func (r Result) TotalPages() int {
	last, ok := r.LastPage()
	if !ok {
		return 0
	}
	return pagination.TotalPages(last.Total, last.Limit)
}

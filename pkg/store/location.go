package store

import (
	"sync"

	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// Location mirrors the committed parameters as a URL query string and keeps
// the history of every query it was given, oldest first.
//
// Location 以URL查询串形式镜像已提交参数，并保留所有历史查询（最早的在前）。
type Location struct {
	mu      sync.Mutex
	query   string
	history []string
}

// NewLocation starts a location at query.
// NewLocation 以query作为起始位置。
func NewLocation(query string) *Location {
	return &Location{query: query, history: []string{query}}
}

// Publish is a Subscriber that re-encodes p as the current query.
// Unchanged queries are not added to the history.
//
// Publish 是一个订阅函数，将p重新编码为当前查询串。查询串未变化时不记录历史。
func (l *Location) Publish(p params.ProductQueryParams) {
	q := params.Encode(p)

	l.mu.Lock()
	defer l.mu.Unlock()
	if q == l.query {
		return
	}
	l.query = q
	l.history = append(l.history, q)
}

// Query returns the current query string.
// Query 返回当前查询串。
func (l *Location) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// History returns every query in the order it was published.
// History 按发布顺序返回所有查询串。
func (l *Location) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.history...)
}

// Package mockapi implements the product listing API in memory.
// It answers the same query language as the real collaborator and is used
// by tests and the mock-api command.
//
// Package mockapi 在内存中实现商品列表接口，支持与真实接口相同的查询语法，
// 供测试和mock-api命令使用。
package mockapi

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// Sample values used by Generate.
var (
	Categories = []string{"Upper Body", "Lower Body", "Hat", "Shoes", "Accessory"}
	Themes     = []string{"Dark", "Light", "Colorful", "Halloween"}
	Tiers      = []string{"Basic", "Premium", "Deluxe"}
)

// Query is a parsed product listing request.
// Paginate is false when the request names no page, in which case every match is returned.
//
// Query 是解析后的商品列表请求。请求未指定页码时Paginate为false，返回所有匹配项。
type Query struct {
	params.ProductQueryParams
	Paginate bool
}

// Catalog holds products in memory.
// Catalog 在内存中保存商品。
type Catalog struct {
	mu       sync.RWMutex
	products []model.Product
	requests int
}

// NewCatalog creates a catalog with the given products.
func NewCatalog(products []model.Product) *Catalog {
	return &Catalog{products: append([]model.Product(nil), products...)}
}

// Generate returns n products with values picked by a generator seeded with seed.
// The same seed always gives the same products.
//
// Generate 使用以seed为种子的生成器返回n个商品，相同种子总是生成相同商品。
func Generate(n int, seed int64) []model.Product {
	r := rand.New(rand.NewSource(seed))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]model.Product, n)
	for i := range out {
		category := Categories[r.Intn(len(Categories))]
		out[i] = model.Product{
			ID:         i + 1,
			Title:      fmt.Sprintf("%s %s #%d", Themes[r.Intn(len(Themes))], category, i+1),
			Category:   category,
			Price:      float64(r.Intn(20000)) / 100,
			IsFavorite: r.Intn(4) == 0,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
			Theme:      Themes[r.Intn(len(Themes))],
			Tier:       Tiers[r.Intn(len(Tiers))],
			ImageID:    r.Intn(20) + 1,
			AuthorID:   r.Intn(50) + 1,
		}
	}
	return out
}

// Find returns the matching products for q and the number of matches before pagination.
//
// Find 返回q匹配的商品以及分页前的匹配总数。
func (c *Catalog) Find(q Query) ([]model.Product, int) {
	c.mu.Lock()
	c.requests++
	matched := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		if matches(p, q.ProductQueryParams) {
			matched = append(matched, p)
		}
	}
	c.mu.Unlock()

	if q.Sort != nil {
		desc := q.Order != nil && *q.Order == params.OrderDesc
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i].Price > matched[j].Price
			}
			return matched[i].Price < matched[j].Price
		})
	}

	total := len(matched)
	if !q.Paginate {
		return matched, total
	}

	start := (q.Page - 1) * q.Limit
	if start >= total {
		return []model.Product{}, total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total
}

// Add appends products to the catalog.
func (c *Catalog) Add(products ...model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = append(c.products, products...)
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Requests returns the number of listing requests served.
// Requests 返回已处理的列表请求数。
func (c *Catalog) Requests() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requests
}

func matches(p model.Product, q params.ProductQueryParams) bool {
	if q.Q != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q.Q)) {
		return false
	}
	if q.PriceGTE != nil && p.Price < *q.PriceGTE {
		return false
	}
	if q.PriceLTE != nil && p.Price > *q.PriceLTE {
		return false
	}
	if q.Tier != nil && p.Tier != *q.Tier {
		return false
	}
	if q.Theme != nil && p.Theme != *q.Theme {
		return false
	}
	if len(q.Category) > 0 && !q.HasCategory(p.Category) {
		return false
	}
	return true
}

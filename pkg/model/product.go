// Package model defines the catalog records exchanged with the product API.
// Package model 定义与商品接口交换的目录数据结构。
package model

// Product represents a product in the catalog
// Product 表示目录中的一个商品
type Product struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	IsFavorite bool    `json:"isFavorite"`
	CreatedAt  string  `json:"createdAt"`
	Theme      string  `json:"theme"`
	Tier       string  `json:"tier"`
	ImageID    int     `json:"imageId"`
	AuthorID   int     `json:"authorId"`
}

// Page is one fetched page of a result series.
// Total is the item count across all pages as reported by the server.
//
// Page 是结果序列中的一页。
// Total 为服务端报告的所有页的条目总数。
type Page struct {
	Data  []Product `json:"data"`
	Limit int       `json:"limit"`
	Page  int       `json:"page"`
	Total int       `json:"total"`
}

// IsLast reports whether no further page follows this one.
// IsLast 判断该页之后是否没有更多页。
func (p Page) IsLast() bool {
	return len(p.Data) < p.Limit
}

// Facets lists the distinct filter values found in the whole catalog
// Facets 列出整个目录中可用的筛选值
type Facets struct {
	Categories []string `json:"categories"`
	Themes     []string `json:"themes"`
	Tiers      []string `json:"tiers"`
	MaxPrice   float64  `json:"maxPrice"`
}

// BuildFacets collects distinct categories, themes and tiers in first-occurrence
// order together with the highest price. An empty list yields a zero MaxPrice.
//
// BuildFacets 按首次出现顺序收集去重后的分类、主题和等级，以及最高价格。
// 空列表的MaxPrice为0。
func BuildFacets(products []Product) Facets {
	f := Facets{
		Categories: []string{},
		Themes:     []string{},
		Tiers:      []string{},
	}
	seenCategory := make(map[string]struct{})
	seenTheme := make(map[string]struct{})
	seenTier := make(map[string]struct{})

	for i, p := range products {
		if _, ok := seenCategory[p.Category]; !ok {
			seenCategory[p.Category] = struct{}{}
			f.Categories = append(f.Categories, p.Category)
		}
		if _, ok := seenTheme[p.Theme]; !ok {
			seenTheme[p.Theme] = struct{}{}
			f.Themes = append(f.Themes, p.Theme)
		}
		if _, ok := seenTier[p.Tier]; !ok {
			seenTier[p.Tier] = struct{}{}
			f.Tiers = append(f.Tiers, p.Tier)
		}
		if i == 0 || p.Price > f.MaxPrice {
			f.MaxPrice = p.Price
		}
	}
	return f
}

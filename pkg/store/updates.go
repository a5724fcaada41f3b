package store

import (
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// AllOption is the select value meaning "no filter"
// AllOption 表示"不过滤"的选项值
const AllOption = "all"

// ToggleCategory adds or removes a category. Removing the last one clears the field.
// ToggleCategory 添加或移除分类，移除最后一个分类时清空该字段。
func ToggleCategory(category string) Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		p.Category = params.ToggleCategory(p.Category, category)
		return p
	}
}

// SetTier selects a tier; "" or "all" clears it.
// SetTier 选择等级，""或"all"表示清除。
func SetTier(tier string) Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		p.Tier = optional(tier)
		return p
	}
}

// SetTheme selects a theme; "" or "all" clears it.
// SetTheme 选择主题，""或"all"表示清除。
func SetTheme(theme string) Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		p.Theme = optional(theme)
		return p
	}
}

// SetPriceSort sorts by price in the given direction.
// "", "all" or an unknown direction clears both the sort field and the order.
//
// SetPriceSort 按价格以指定方向排序。
// ""、"all"或未知方向会同时清除排序字段和方向。
func SetPriceSort(order string) Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		o, ok := params.ParseSortOrder(order)
		if !ok {
			p.Sort = nil
			p.Order = nil
			return p
		}
		p.Sort = params.Sort(params.SortPrice)
		p.Order = params.Order(o)
		return p
	}
}

// SetPriceRange sets both price bounds; nil clears a bound.
// SetPriceRange 设置价格上下限，nil表示清除对应边界。
func SetPriceRange(lo, hi *float64) Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		p.PriceGTE = copyFloat(lo)
		p.PriceLTE = copyFloat(hi)
		return p
	}
}

// SetQuery replaces the free-text search.
// SetQuery 替换全文搜索词。
func SetQuery(q string) Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		p.Q = q
		return p
	}
}

// GoToPage moves to page n.
// GoToPage 跳转到第n页。
func GoToPage(n int) Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		p.Page = n
		return p
	}
}

// SetLimit changes the page size.
// SetLimit 修改每页数量。
func SetLimit(n int) Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		p.Limit = n
		return p
	}
}

// Reset clears every filter and the sort, returns to page 1 and keeps the page size.
// Reset 清除所有筛选和排序，回到第1页并保留每页数量。
func Reset() Update {
	return func(p params.ProductQueryParams) params.ProductQueryParams {
		next := params.Default()
		next.Limit = p.Limit
		return next
	}
}

func optional(v string) *string {
	if v == "" || v == AllOption {
		return nil
	}
	return params.String(v)
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return params.Float(*f)
}

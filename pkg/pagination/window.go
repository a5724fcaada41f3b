// Package pagination computes the bounded page-number window shown under a
// result grid.
//
// Package pagination 计算结果列表下方显示的有界页码窗口。
package pagination

import "strconv"

// maxFullWindow is the largest page count shown without ellipsis markers
// maxFullWindow 无需省略号即可完整显示的最大页数
const maxFullWindow = 5

// Item is one entry of a pagination window: a page number or an ellipsis marker.
// Item 是分页窗口中的一项：页码或省略号。
type Item struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// PageItem returns an Item for page n.
func PageItem(n int) Item { return Item{Page: n} }

// EllipsisItem returns an ellipsis marker.
func EllipsisItem() Item { return Item{Ellipsis: true} }

// String renders the item as its page number or "...".
// String 将项渲染为页码或"..."。
func (i Item) String() string {
	if i.Ellipsis {
		return "..."
	}
	return strconv.Itoa(i.Page)
}

// Window returns the display window for page within totalPages.
//
//	totalPages <= 5:             1 .. totalPages
//	page <= 3:                   1 2 3 4 … N
//	page >= totalPages-2:        1 … N-3 N-2 N-1 N
//	otherwise:                   1 … p-1 p p+1 … N
//
// A totalPages of zero or less yields an empty window.
//
// Window 返回指定页在总页数内的显示窗口。
// 总页数小于等于0时返回空窗口。
//
// Parameters:
//   - page: The current page, 1-indexed
//   - totalPages: The number of pages
//
// Returns:
//   - []Item: Entries in ascending order
func Window(page, totalPages int) []Item {
	if totalPages <= 0 {
		return []Item{}
	}

	if totalPages <= maxFullWindow {
		items := make([]Item, 0, totalPages)
		for i := 1; i <= totalPages; i++ {
			items = append(items, PageItem(i))
		}
		return items
	}

	switch {
	case page <= 3:
		return []Item{PageItem(1), PageItem(2), PageItem(3), PageItem(4), EllipsisItem(), PageItem(totalPages)}
	case page >= totalPages-2:
		return []Item{
			PageItem(1), EllipsisItem(),
			PageItem(totalPages - 3), PageItem(totalPages - 2), PageItem(totalPages - 1), PageItem(totalPages),
		}
	default:
		return []Item{
			PageItem(1), EllipsisItem(),
			PageItem(page - 1), PageItem(page), PageItem(page + 1),
			EllipsisItem(), PageItem(totalPages),
		}
	}
}

// TotalPages returns ceil(total/limit), or 0 when either is not positive.
// TotalPages 返回ceil(total/limit)，任一参数不为正时返回0。
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

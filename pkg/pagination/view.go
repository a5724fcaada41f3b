package pagination

// View is everything a pagination control needs to render.
// View 包含分页控件渲染所需的全部信息。
type View struct {
	Items      []Item `json:"items"`
	Current    int    `json:"current"`
	TotalPages int    `json:"totalPages"`
	Prev       int    `json:"prev"`
	Next       int    `json:"next"`
	HasPrev    bool   `json:"hasPrev"`
	HasNext    bool   `json:"hasNext"`
}

// Build derives the pagination view for page within totalPages.
// Prev and Next are clamped to the valid range, so on the first page Prev
// equals 1 and on the last page Next equals totalPages.
//
// Build 生成分页视图。Prev和Next被限制在有效范围内：
// 第一页时Prev为1，最后一页时Next为总页数。
func Build(page, totalPages int) View {
	v := View{
		Items:      Window(page, totalPages),
		Current:    page,
		TotalPages: totalPages,
	}
	if totalPages <= 0 {
		return v
	}

	v.Prev = max(1, page-1)
	v.Next = min(totalPages, page+1)
	v.HasPrev = page > 1
	v.HasNext = page < totalPages
	return v
}

// Package params defines the canonical catalog query parameters and their
// URL query-string form.
//
// The encoded form doubles as the cache key: two structurally equal values
// always encode to the same string, whatever order they were built in.
//
// Package params 定义目录查询参数的规范结构及其URL查询串形式。
// 编码结果同时作为缓存键：结构相同的两个值无论构造顺序如何，编码结果都相同。
package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Query keys understood by the product API.
// 商品接口识别的查询键。
const (
	KeyQuery    = "q"
	KeyPriceGTE = "price_gte"
	KeyPriceLTE = "price_lte"
	KeyTier     = "tier"
	KeyTheme    = "theme"
	KeyCategory = "category"
	KeySort     = "_sort"
	KeyOrder    = "_order"
	KeyPage     = "_page"
	KeyLimit    = "_limit"
)

const (
	// DefaultPage is the page used when none is given
	// DefaultPage 未指定页码时使用的页码
	DefaultPage = 1

	// DefaultLimit is the page size used when none is given
	// DefaultLimit 未指定每页数量时使用的数量
	DefaultLimit = 8
)

// SortField names a sortable product field.
// SortField 表示可排序的商品字段。
type SortField string

// SortPrice sorts by product price.
// SortPrice 按价格排序。
const SortPrice SortField = "price"

// SortOrder is the sort direction.
// SortOrder 表示排序方向。
type SortOrder string

// Sort directions.
// 排序方向。
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortField returns the SortField for s, or false if s is not a known field.
// ParseSortField 解析排序字段，未知字段返回false。
func ParseSortField(s string) (SortField, bool) {
	if SortField(s) == SortPrice {
		return SortPrice, true
	}
	return "", false
}

// ParseSortOrder returns the SortOrder for s, or false if s is neither asc nor desc.
// ParseSortOrder 解析排序方向，非asc/desc时返回false。
func ParseSortOrder(s string) (SortOrder, bool) {
	switch SortOrder(s) {
	case OrderAsc, OrderDesc:
		return SortOrder(s), true
	}
	return "", false
}

// ProductQueryParams is the full catalog query.
// Optional fields are pointers; nil means the field is absent and is not encoded.
// Values are treated as immutable: derive a new value with Clone before changing one.
//
// ProductQueryParams 是完整的目录查询参数。
// 可选字段使用指针，nil表示缺省且不参与编码。
// 值视为不可变：修改前应先Clone。
type ProductQueryParams struct {
	Q        string     `json:"q"`
	PriceGTE *float64   `json:"price_gte,omitempty"`
	PriceLTE *float64   `json:"price_lte,omitempty"`
	Tier     *string    `json:"tier,omitempty"`
	Theme    *string    `json:"theme,omitempty"`
	Category []string   `json:"category,omitempty"`
	Sort     *SortField `json:"_sort,omitempty"`
	Order    *SortOrder `json:"_order,omitempty"`
	Page     int        `json:"_page"`
	Limit    int        `json:"_limit"`
}

// Default returns the parameter value with every field at its default.
// Default 返回所有字段均为默认值的参数。
func Default() ProductQueryParams {
	return ProductQueryParams{Page: DefaultPage, Limit: DefaultLimit}
}

// String returns a pointer to s, for building optional fields.
// String 返回s的指针，用于构造可选字段。
func String(s string) *string { return &s }

// Float returns a pointer to f, for building optional fields.
// Float 返回f的指针，用于构造可选字段。
func Float(f float64) *float64 { return &f }

// Sort returns a pointer to f.
func Sort(f SortField) *SortField { return &f }

// Order returns a pointer to o.
func Order(o SortOrder) *SortOrder { return &o }

// Clone returns a deep copy of p.
//
// Clone 返回p的深拷贝。
//
// Returns:
//   - ProductQueryParams: A copy sharing no memory with p
func (p ProductQueryParams) Clone() ProductQueryParams {
	c := p
	if p.PriceGTE != nil {
		c.PriceGTE = Float(*p.PriceGTE)
	}
	if p.PriceLTE != nil {
		c.PriceLTE = Float(*p.PriceLTE)
	}
	if p.Tier != nil {
		c.Tier = String(*p.Tier)
	}
	if p.Theme != nil {
		c.Theme = String(*p.Theme)
	}
	if p.Category != nil {
		c.Category = append([]string(nil), p.Category...)
	}
	if p.Sort != nil {
		c.Sort = Sort(*p.Sort)
	}
	if p.Order != nil {
		c.Order = Order(*p.Order)
	}
	return c
}

// Normalize returns p with out-of-range values corrected: page and limit
// below 1 fall back to their defaults, empty optional strings and an empty
// category set become absent, duplicate categories are dropped and an order
// without a sort field is cleared.
//
// Normalize 返回修正后的参数：小于1的页码和每页数量回退到默认值，
// 空字符串和空分类集合视为缺省，重复分类被去除，没有排序字段时清除排序方向。
func (p ProductQueryParams) Normalize() ProductQueryParams {
	n := p.Clone()
	if n.Page < 1 {
		n.Page = DefaultPage
	}
	if n.Limit < 1 {
		n.Limit = DefaultLimit
	}
	if n.Tier != nil && *n.Tier == "" {
		n.Tier = nil
	}
	if n.Theme != nil && *n.Theme == "" {
		n.Theme = nil
	}
	if n.PriceGTE != nil && !finite(*n.PriceGTE) {
		n.PriceGTE = nil
	}
	if n.PriceLTE != nil && !finite(*n.PriceLTE) {
		n.PriceLTE = nil
	}
	n.Category = uniqueNonEmpty(n.Category)
	if n.Sort == nil {
		n.Order = nil
	}
	return n
}

// Equal reports whether p and o encode identically.
// Equal 判断两个参数的编码结果是否相同。
func (p ProductQueryParams) Equal(o ProductQueryParams) bool {
	return Encode(p) == Encode(o)
}

// Key returns the cache key for p.
// Every field affects the server result, so the key is the full encoding.
//
// Key 返回p的缓存键。所有字段都会影响服务端结果，因此键即完整编码。
func (p ProductQueryParams) Key() string {
	return Encode(p)
}

// HasCategory reports whether c is in the category set.
// HasCategory 判断分类是否已选中。
func (p ProductQueryParams) HasCategory(c string) bool {
	for _, v := range p.Category {
		if v == c {
			return true
		}
	}
	return false
}

// ToggleCategory adds c to the set if missing, or removes it if present.
// Order of the other members is preserved; an emptied set becomes nil.
//
// ToggleCategory 若分类不存在则追加，存在则移除。
// 其余成员顺序不变；集合为空时返回nil。
//
// Parameters:
//   - set: The current categories
//   - c: The category to toggle
//
// Returns:
//   - []string: A new slice; set is not modified
func ToggleCategory(set []string, c string) []string {
	out := make([]string, 0, len(set)+1)
	found := false
	for _, v := range set {
		if v == c {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Encode serializes p into its canonical query string.
// Fields are emitted in a fixed order; absent fields (nil pointers, empty
// strings, an empty category set) are skipped. Zero is a value and is emitted.
// Page and limit are always present.
//
// Encode 将参数序列化为规范查询串。
// 字段按固定顺序输出；缺省字段（nil指针、空字符串、空分类集合）被跳过。
// 0是有效值，会被输出。页码和每页数量总是输出。
//
// Parameters:
//   - p: The parameters to encode
//
// Returns:
//   - string: The query string without a leading '?'
func Encode(p ProductQueryParams) string {
	var b strings.Builder
	add := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}

	if p.Q != "" {
		add(KeyQuery, p.Q)
	}
	if p.PriceGTE != nil && finite(*p.PriceGTE) {
		add(KeyPriceGTE, formatFloat(*p.PriceGTE))
	}
	if p.PriceLTE != nil && finite(*p.PriceLTE) {
		add(KeyPriceLTE, formatFloat(*p.PriceLTE))
	}
	if p.Tier != nil && *p.Tier != "" {
		add(KeyTier, *p.Tier)
	}
	if p.Theme != nil && *p.Theme != "" {
		add(KeyTheme, *p.Theme)
	}
	for _, c := range p.Category {
		if c != "" {
			add(KeyCategory, c)
		}
	}
	if p.Sort != nil && *p.Sort != "" {
		add(KeySort, string(*p.Sort))
	}
	if p.Order != nil && *p.Order != "" {
		add(KeyOrder, string(*p.Order))
	}
	add(KeyPage, strconv.Itoa(p.Page))
	add(KeyLimit, strconv.Itoa(p.Limit))
	return b.String()
}

// Decode parses a query string into parameters.
// Missing, empty or unparseable values leave the field at its default.
// Unknown keys are ignored. For scalar keys the first occurrence wins;
// repeated categories keep first-occurrence order without duplicates.
// A leading '?' is accepted.
//
// Decode 将查询串解析为参数。
// 缺失、为空或无法解析的值保持默认值，未知键被忽略。
// 标量键以第一次出现为准；重复的分类按首次出现顺序去重。允许前导'?'。
//
// Parameters:
//   - raw: The query string
//
// Returns:
//   - ProductQueryParams: The decoded parameters
func Decode(raw string) ProductQueryParams {
	// ParseQuery keeps every well-formed pair even when it reports an error
	// ParseQuery 出错时仍会保留格式正确的键值对
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return FromValues(values)
}

// FromValues decodes already-parsed query values, see Decode.
// FromValues 从已解析的查询值中解码参数，规则同Decode。
func FromValues(values url.Values) ProductQueryParams {
	p := Default()
	first := func(key string) (string, bool) {
		for _, v := range values[key] {
			if v != "" {
				return v, true
			}
		}
		return "", false
	}

	if v, ok := first(KeyQuery); ok {
		p.Q = v
	}
	if v, ok := first(KeyPriceGTE); ok {
		if f, ok := parseFloat(v); ok {
			p.PriceGTE = Float(f)
		}
	}
	if v, ok := first(KeyPriceLTE); ok {
		if f, ok := parseFloat(v); ok {
			p.PriceLTE = Float(f)
		}
	}
	if v, ok := first(KeyTier); ok {
		p.Tier = String(v)
	}
	if v, ok := first(KeyTheme); ok {
		p.Theme = String(v)
	}
	p.Category = uniqueNonEmpty(values[KeyCategory])
	if v, ok := first(KeySort); ok {
		if s, ok := ParseSortField(v); ok {
			p.Sort = Sort(s)
		}
	}
	if v, ok := first(KeyOrder); ok {
		if o, ok := ParseSortOrder(v); ok {
			p.Order = Order(o)
		}
	}
	if v, ok := first(KeyPage); ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.Page = n
		}
	}
	if v, ok := first(KeyLimit); ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.Limit = n
		}
	}
	return p
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func uniqueNonEmpty(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

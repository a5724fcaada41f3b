package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Humphrey-He/hcatalog/configs"
	"github.com/Humphrey-He/hcatalog/internal/mockapi"
	"github.com/Humphrey-He/hcatalog/pkg/cache"
	"github.com/Humphrey-He/hcatalog/pkg/client"
	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/pagination"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type viewBody struct {
	Query       string           `json:"query"`
	Products    []model.Product  `json:"products"`
	Status      string           `json:"status"`
	Error       string           `json:"error"`
	Retryable   bool             `json:"retryable"`
	Total       int              `json:"total"`
	Pagination  *pagination.View `json:"pagination"`
	HasNextPage bool             `json:"hasNextPage"`
	Empty       bool             `json:"empty"`
	Facets      *model.Facets    `json:"facets"`
}

type fixture struct {
	api    *mockapi.Server
	server *Server
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	api := mockapi.NewServer(mockapi.NewCatalog(mockapi.Generate(n, 7)), nil)
	upstream := httptest.NewServer(api.Handler())
	t.Cleanup(upstream.Close)

	cl, err := client.New(upstream.URL)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	reg := prometheus.NewRegistry()
	fc, err := cache.NewWithOptions(cl, cache.WithPrometheus(reg, "test"), cache.WithStaleTTL(0))
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(func() { fc.Close() })

	config := configs.DefaultConfig().Server
	config.SessionTTL = time.Minute
	srv, err := New(fc, config, WithFacets(cl), WithMetrics(reg, "/metrics"))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	t.Cleanup(srv.Close)
	return &fixture{api: api, server: srv}
}

func (f *fixture) do(t *testing.T, method, target, session string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewBody {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var v viewBody
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode view: %v", err)
	}
	return v
}

// TestCatalogBrowse tests loading, continuing and re-reading a session's series.
// TestCatalogBrowse 测试会话序列的加载、续页和重复读取。
func TestCatalogBrowse(t *testing.T) {
	f := newFixture(t, 20)

	rec := f.do(t, http.MethodGet, "/catalog?_limit=5", "")
	v := decodeView(t, rec)
	session := rec.Header().Get(SessionHeader)
	if session == "" || rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("Expected session and request id headers, got %v", rec.Header())
	}
	if len(v.Products) != 5 || v.Total != 20 || !v.HasNextPage {
		t.Errorf("Unexpected first view: %d products, total %d", len(v.Products), v.Total)
	}
	if v.Pagination == nil || v.Pagination.TotalPages != 4 || v.Pagination.Current != 1 {
		t.Errorf("Expected pagination over 4 pages, got %+v", v.Pagination)
	}
	if v.Query != "_page=1&_limit=5" {
		t.Errorf("Unexpected query %s", v.Query)
	}
	if v.Facets == nil || len(v.Facets.Categories) == 0 {
		t.Errorf("Expected facets in view, got %+v", v.Facets)
	}

	v = decodeView(t, f.do(t, http.MethodGet, "/catalog/next", session))
	if len(v.Products) != 10 || v.Pagination.Current != 2 {
		t.Errorf("Expected 10 products on page 2, got %d", len(v.Products))
	}

	before := f.api.Catalog().Requests()
	v = decodeView(t, f.do(t, http.MethodGet, "/catalog", session))
	if len(v.Products) != 10 {
		t.Errorf("Expected cached series of 10, got %d", len(v.Products))
	}
	if after := f.api.Catalog().Requests(); after != before {
		t.Errorf("Expected no product requests for a cached series, got %d", after-before)
	}
}

// TestCatalogNavigate tests that an existing session follows a new query.
func TestCatalogNavigate(t *testing.T) {
	f := newFixture(t, 20)

	rec := f.do(t, http.MethodGet, "/catalog", "")
	session := rec.Header().Get(SessionHeader)
	decodeView(t, rec)

	rec = f.do(t, http.MethodGet, "/catalog?category=Hat&_sort=price&_order=asc", session)
	v := decodeView(t, rec)
	if rec.Header().Get(SessionHeader) != session {
		t.Errorf("Expected same session, got %s", rec.Header().Get(SessionHeader))
	}
	if v.Query != "category=Hat&_sort=price&_order=asc&_page=1&_limit=8" {
		t.Errorf("Unexpected query %s", v.Query)
	}
	for i, p := range v.Products {
		if p.Category != "Hat" {
			t.Errorf("Expected only hats, got %s", p.Category)
		}
		if i > 0 && p.Price < v.Products[i-1].Price {
			t.Errorf("Expected ascending prices, got %v after %v", p.Price, v.Products[i-1].Price)
		}
	}
}

// TestNextPageAtEnd tests continuing past the last page.
// TestNextPageAtEnd 测试在最后一页之后继续加载。
func TestNextPageAtEnd(t *testing.T) {
	f := newFixture(t, 6)

	rec := f.do(t, http.MethodGet, "/catalog/next?_limit=10", "")
	v := decodeView(t, rec)
	if len(v.Products) != 6 || v.HasNextPage || v.Pagination != nil {
		t.Errorf("Expected a single page of 6, got %d (next %v)", len(v.Products), v.HasNextPage)
	}
}

// TestCatalogErrorAndRetry tests that a failed load is reported and retried on request.
func TestCatalogErrorAndRetry(t *testing.T) {
	f := newFixture(t, 10)
	f.api.FailNext(http.StatusInternalServerError, 1)

	rec := f.do(t, http.MethodGet, "/catalog", "")
	session := rec.Header().Get(SessionHeader)
	v := decodeView(t, rec)
	if v.Status != "errored" || v.Error == "" || !v.Retryable {
		t.Errorf("Expected retryable error, got %s %q", v.Status, v.Error)
	}

	// 错误不会自动重试
	v = decodeView(t, f.do(t, http.MethodGet, "/catalog", session))
	if v.Status != "errored" {
		t.Errorf("Expected error to persist, got %s", v.Status)
	}

	v = decodeView(t, f.do(t, http.MethodPost, "/catalog/retry", session))
	if v.Status != "settled" || len(v.Products) != 8 || v.Error != "" {
		t.Errorf("Expected recovered view, got %s with %d products", v.Status, len(v.Products))
	}
}

// TestEmptyCatalog tests the empty state.
func TestEmptyCatalog(t *testing.T) {
	f := newFixture(t, 10)
	v := decodeView(t, f.do(t, http.MethodGet, "/catalog?q=no-such-product", ""))
	if !v.Empty || len(v.Products) != 0 || v.Pagination != nil {
		t.Errorf("Expected empty view, got %+v", v)
	}
}

// TestAuxiliaryRoutes tests the facets, stats, metrics and health routes.
// TestAuxiliaryRoutes 测试筛选项、统计、指标和健康检查路由。
func TestAuxiliaryRoutes(t *testing.T) {
	f := newFixture(t, 12)
	decodeView(t, f.do(t, http.MethodGet, "/catalog", ""))

	rec := f.do(t, http.MethodGet, "/facets", "")
	var facets model.Facets
	if err := json.Unmarshal(rec.Body.Bytes(), &facets); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("Failed to get facets: %d %v", rec.Code, err)
	}
	if len(facets.Tiers) == 0 || facets.MaxPrice <= 0 {
		t.Errorf("Unexpected facets %+v", facets)
	}

	rec = f.do(t, http.MethodGet, "/cache/stats", "")
	var stats struct {
		Misses  uint64 `json:"misses"`
		Entries int64  `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Expected 1 miss and 1 entry, got %+v", stats)
	}
	if rec.Header().Get("X-Cache-Misses") != "1" {
		t.Errorf("Expected X-Cache-Misses 1, got %q", rec.Header().Get("X-Cache-Misses"))
	}

	rec = f.do(t, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "test_cache_lookups_total") {
		t.Errorf("Expected cache collectors in metrics output")
	}

	rec = f.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"sessions":1`) {
		t.Errorf("Unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

// TestRequestIDPassthrough tests that a caller's request id is kept.
func TestRequestIDPassthrough(t *testing.T) {
	f := newFixture(t, 1)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("Expected request id req-42, got %q", got)
	}
}

// TestSessionExpiry tests that idle sessions are closed.
// TestSessionExpiry 测试空闲会话被关闭。
func TestSessionExpiry(t *testing.T) {
	f := newFixture(t, 4)
	now := time.Now()
	f.server.sessions.now = func() time.Time { return now }

	rec := f.do(t, http.MethodGet, "/catalog", "")
	first := rec.Header().Get(SessionHeader)

	now = now.Add(2 * time.Minute)
	rec = f.do(t, http.MethodGet, "/catalog", "")
	if n := f.server.sessions.count(); n != 1 {
		t.Errorf("Expected the idle session to be dropped, got %d sessions", n)
	}

	// 过期会话的id重新使用时创建新会话
	rec = f.do(t, http.MethodGet, "/catalog", first)
	if rec.Header().Get(SessionHeader) != first || f.server.sessions.count() != 2 {
		t.Errorf("Expected session %s to be recreated", first)
	}
}

package mockapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// TotalCountHeader carries the match count before pagination.
const TotalCountHeader = "X-Total-Count"

// Server serves a Catalog over HTTP.
// It can inject latency and failures so callers can exercise their error paths.
//
// Server 通过HTTP提供Catalog，可注入延迟和失败以便调用方测试错误处理。
type Server struct {
	catalog *Catalog
	logger  *zap.Logger

	mu       sync.Mutex
	latency  time.Duration
	failures []int
}

// NewServer creates a server for catalog.
func NewServer(catalog *Catalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{catalog: catalog, logger: logger}
}

// Catalog returns the served catalog.
func (s *Server) Catalog() *Catalog {
	return s.catalog
}

// SetLatency delays every response by d.
// SetLatency 使每个响应延迟d。
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// FailNext makes the next n listing requests answer with status.
// FailNext 使接下来n个列表请求以status应答。
func (s *Server) FailNext(status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, status)
	}
}

// Register mounts the API routes on r.
// Register 在r上注册接口路由。
func (s *Server) Register(r gin.IRoutes) {
	r.GET("/products", s.ListProducts)
	r.GET("/products/:id", s.GetProduct)
}

// Handler returns a router serving the API.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	s.Register(r)
	return r
}

// ListProducts handles GET /products.
// Without _page every match is returned; with it the matches are paginated
// by _page and _limit. X-Total-Count always carries the match count.
//
// ListProducts 处理 GET /products。
// 未指定_page时返回所有匹配项，否则按_page和_limit分页。X-Total-Count始终为匹配总数。
func (s *Server) ListProducts(c *gin.Context) {
	if status, ok := s.delay(c); ok {
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}

	values := c.Request.URL.Query()
	q := Query{
		ProductQueryParams: params.FromValues(values).Normalize(),
		Paginate:           values.Get(params.KeyPage) != "",
	}
	products, total := s.catalog.Find(q)

	s.logger.Debug("mock listing",
		zap.String("query", c.Request.URL.RawQuery),
		zap.Int("items", len(products)),
		zap.Int("total", total))

	c.Header(TotalCountHeader, strconv.Itoa(total))
	c.JSON(http.StatusOK, products)
}

// GetProduct handles GET /products/:id.
func (s *Server) GetProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()
	for _, p := range s.catalog.products {
		if p.ID == id {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
}

// delay waits out the configured latency and pops a pending failure.
func (s *Server) delay(c *gin.Context) (int, bool) {
	s.mu.Lock()
	latency := s.latency
	var status int
	failing := len(s.failures) > 0
	if failing {
		status = s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-c.Request.Context().Done():
		}
	}
	return status, failing
}

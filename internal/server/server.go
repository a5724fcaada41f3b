// Package server exposes browse sessions over HTTP for front ends that keep
// their parameters in the URL query. Each request carries the session id in
// X-Session-ID and the product query in its own query string.
//
// Package server 通过HTTP为将参数保存在URL查询串中的前端提供浏览会话。
// 每个请求在X-Session-ID中携带会话id，在自身查询串中携带商品查询参数。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/configs"
	"github.com/Humphrey-He/hcatalog/pkg/cache"
	"github.com/Humphrey-He/hcatalog/pkg/catalog"
)

// Option configures a Server.
type Option func(*Server)

// WithFacets sets the filter option source for /facets and the views.
func WithFacets(src catalog.FacetSource) Option {
	return func(s *Server) { s.facets = src }
}

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics serves g on path.
// WithMetrics 在path上提供g的指标。
func WithMetrics(g prometheus.Gatherer, path string) Option {
	return func(s *Server) {
		s.gatherer = g
		s.metricsPath = path
	}
}

// WithSessionOptions adds options applied to every new session.
func WithSessionOptions(options ...catalog.Option) Option {
	return func(s *Server) { s.sessionOptions = append(s.sessionOptions, options...) }
}

// Server is the HTTP front end of the catalog.
// Server 是目录的HTTP前端。
type Server struct {
	cache          *cache.FetchCache
	facets         catalog.FacetSource
	logger         *zap.Logger
	gatherer       prometheus.Gatherer
	metricsPath    string
	sessionOptions []catalog.Option
	config         configs.ServerConfig
	sessions       *sessionRegistry
	router         *gin.Engine
}

// New creates a server reading through c.
//
// New 创建通过c读取数据的服务。
//
// Parameters:
//   - c: The fetch cache shared by all sessions
//   - config: The server configuration section
//   - options: Optional settings
//
// Returns:
//   - *Server: The created server
//   - error: An error if c is nil
func New(c *cache.FetchCache, config configs.ServerConfig, options ...Option) (*Server, error) {
	if c == nil {
		return nil, errors.New("server: cache is required")
	}
	s := &Server{
		cache:  c,
		logger: zap.NewNop(),
		config: config,
	}
	for _, option := range options {
		option(s)
	}

	s.sessions = newSessionRegistry(config.SessionTTL, s.newSession)
	s.router = s.routes()
	return s, nil
}

func (s *Server) newSession(rawQuery, id string) *catalog.Session {
	options := append([]catalog.Option{
		catalog.WithLogger(s.logger),
		catalog.WithID(id),
	}, s.sessionOptions...)
	if s.facets != nil {
		options = append(options, catalog.WithFacets(s.facets))
	}
	session := catalog.NewSession(rawQuery, s.cache, options...)
	s.logger.Debug("session created", zap.String("session", session.ID()), zap.String("query", session.Query()))
	return session
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(s.logger))
	r.Use(CORS(s.config.CORSOrigins))
	r.Use(CacheMetrics(s.cache))

	r.GET("/catalog", s.GetCatalog)
	r.GET("/catalog/next", s.NextPage)
	r.POST("/catalog/retry", s.RetryCatalog)
	r.GET("/facets", s.GetFacets)
	r.GET("/cache/stats", s.CacheStats)
	r.GET("/healthz", s.Healthz)
	if s.gatherer != nil && s.metricsPath != "" {
		r.GET(s.metricsPath, gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully and closes every session.
//
// Run 在配置的地址上提供服务直到ctx结束，随后优雅关闭并关闭所有会话。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close closes every session.
func (s *Server) Close() {
	s.sessions.closeAll()
}

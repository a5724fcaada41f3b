package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/pkg/catalog"
	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
)

// session returns the request's session. An existing session follows the
// request's query when one is given, as a browser following a link would.
//
// session 返回请求对应的会话。请求带有查询串时，已有会话会跟随该查询串，
// 与浏览器点击链接时一致。
func (s *Server) session(c *gin.Context) *catalog.Session {
	raw := c.Request.URL.RawQuery
	sess, created := s.sessions.acquire(c.GetHeader(SessionHeader), raw)
	if !created && raw != "" {
		sess.Navigate(raw)
	}
	c.Header(SessionHeader, sess.ID())
	return sess
}

// GetCatalog handles GET /catalog. It loads the series for the query if
// needed and returns the view. Fetch failures are part of the view.
//
// GetCatalog 处理 GET /catalog。在需要时加载查询对应的序列并返回视图，请求失败包含在视图中。
func (s *Server) GetCatalog(c *gin.Context) {
	sess := s.session(c)
	view, err := sess.View(c.Request.Context())
	if err != nil {
		s.unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// NextPage handles GET /catalog/next. It appends the next page to the series
// and returns the view; after the last page the view is returned unchanged.
//
// NextPage 处理 GET /catalog/next。将下一页追加到序列并返回视图，已到最后一页时原样返回视图。
func (s *Server) NextPage(c *gin.Context) {
	sess := s.session(c)
	ctx := c.Request.Context()

	if _, err := sess.Load(ctx); err != nil && (ctx.Err() != nil || cerrors.IsClosed(err)) {
		s.unavailable(c, err)
		return
	}
	if _, err := sess.LoadMore(ctx); err != nil {
		switch {
		case cerrors.IsNoNextPage(err):
		case ctx.Err() != nil || cerrors.IsClosed(err):
			s.unavailable(c, err)
			return
		default:
			// 续页失败记录在序列中，由视图展示
			c.Error(err)
		}
	}

	c.JSON(http.StatusOK, sess.Snapshot(ctx))
}

// RetryCatalog handles POST /catalog/retry, re-issuing a failed load.
//
// RetryCatalog 处理 POST /catalog/retry，重新发起失败的加载。
func (s *Server) RetryCatalog(c *gin.Context) {
	sess := s.session(c)
	ctx := c.Request.Context()
	if _, err := sess.Retry(ctx); err != nil && (ctx.Err() != nil || cerrors.IsClosed(err)) {
		s.unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot(ctx))
}

// GetFacets handles GET /facets.
func (s *Server) GetFacets(c *gin.Context) {
	if s.facets == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "facets are not available"})
		return
	}
	f, err := s.facets.Facets(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, f)
}

// CacheStats handles GET /cache/stats.
func (s *Server) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats())
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.count(),
	})
}

func (s *Server) unavailable(c *gin.Context, err error) {
	s.logger.Warn("catalog unavailable", zap.Error(err), zap.String("request_id", GetRequestID(c)))
	c.Error(err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
}

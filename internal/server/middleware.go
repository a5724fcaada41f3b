package server

import (
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Humphrey-He/hcatalog/pkg/cache"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"
	// SessionHeader names the browse session a request belongs to.
	SessionHeader = "X-Session-ID"

	requestIDKey = "request_id"
)

// RequestID ensures every request has an id for tracing and logs.
// An incoming X-Request-ID is kept, otherwise a UUID is generated.
//
// RequestID 确保每个请求都有用于追踪和日志的id。沿用请求中的X-Request-ID，否则生成UUID。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID extracts the request id from the gin context when available.
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequestLogger returns a middleware that logs request information.
//
// RequestLogger 返回记录请求信息的中间件。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", GetRequestID(c)),
		}
		if len(c.Errors) > 0 {
			logger.Warn("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("request", fields...)
	}
}

// CacheMetrics returns a middleware that adds cache counters to the response headers.
//
// CacheMetrics 返回在响应头中添加缓存计数的中间件。
func CacheMetrics(c *cache.FetchCache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		// 响应体写出后无法再设置响应头，因此在处理前写入
		stats := c.Stats()
		ctx.Header("X-Cache-Hits", strconv.FormatUint(stats.Hits, 10))
		ctx.Header("X-Cache-Misses", strconv.FormatUint(stats.Misses, 10))
		ctx.Header("X-Cache-Entries", strconv.FormatInt(stats.Entries, 10))
		ctx.Next()
	}
}

// CORS allows browser front ends on origins to call the API.
// An empty list allows every origin.
//
// CORS 允许来自origins的浏览器前端调用接口，列表为空时允许所有来源。
func CORS(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", SessionHeader, RequestIDHeader},
		ExposeHeaders:    []string{SessionHeader, RequestIDHeader, "X-Cache-Hits", "X-Cache-Misses"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}

// Package errors provides the error kinds of the catalog fetch engine.
// It defines the sentinel errors, a wrapper that records which key and page
// a fetch failed for, and helpers for checking error kinds.
//
// Package errors 提供目录请求引擎的错误类型。
// 它定义了哨兵错误、记录请求失败所属键和页码的包装错误，以及检查错误类型的辅助函数。
package errors

import (
	"errors"
	"fmt"
)

// Standard errors returned by the fetch engine.
// 请求引擎返回的标准错误。
var (
	// ErrNetwork is returned when the transport fails or the server answers with an error status.
	// 当传输失败或服务端返回错误状态码时返回ErrNetwork。
	ErrNetwork = errors.New("catalog: network error")

	// ErrDecode is returned when the response body is not the expected shape.
	// 当响应体不符合预期格式时返回ErrDecode。
	ErrDecode = errors.New("catalog: decode error")

	// ErrAborted is returned when a fetch was cancelled because newer parameters superseded it.
	// It is never stored in the cache and never shown as a failure.
	//
	// 当请求因参数更新而被取消时返回ErrAborted。它不会写入缓存，也不会作为失败展示。
	ErrAborted = errors.New("catalog: request aborted")

	// ErrNoNextPage is returned when a continuation is requested after the last page.
	// 当在最后一页之后请求续页时返回ErrNoNextPage。
	ErrNoNextPage = errors.New("cache: no next page")

	// ErrNotFound is returned when a key has no cache entry.
	// 当键没有对应的缓存条目时返回ErrNotFound。
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when an operation is performed on a closed cache.
	// 当对已关闭的缓存执行操作时返回ErrClosed。
	ErrClosed = errors.New("cache: cache is closed")

	// ErrMissingBaseURL is returned when the product API origin is not configured.
	// 当未配置商品接口地址时返回ErrMissingBaseURL。
	ErrMissingBaseURL = errors.New("config: api.base_url is required")
)

// FetchError records a failed fetch for one page of one key.
// It unwraps to both its kind and the underlying cause, so errors.Is works
// with ErrNetwork as well as with, say, context.DeadlineExceeded.
//
// FetchError 记录某个键某一页的失败请求。
// 它同时展开为错误类型和底层原因，因此errors.Is既可匹配ErrNetwork，也可匹配底层错误。
type FetchError struct {
	Kind   error  // ErrNetwork, ErrDecode or ErrAborted / 错误类型
	Key    string // Cache key of the series / 序列的缓存键
	Page   int    // Requested page / 请求的页码
	Status int    // HTTP status code, 0 if no response / HTTP状态码，无响应时为0
	Err    error  // Underlying cause, may be nil / 底层原因，可能为nil
}

// Error returns the error message.
// It implements the error interface.
//
// Error 返回错误消息。
// 它实现了error接口。
//
// Returns:
//   - string: The formatted error message including key and page
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: page %d of %q", e.Kind, e.Page, e.Key)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the kind and the underlying cause.
// This allows errors.Is and errors.As to match either.
//
// Unwrap 返回错误类型和底层原因，使errors.Is和errors.As可以匹配其中任一。
//
// Returns:
//   - []error: The kind followed by the cause, if any
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewFetchError creates a new FetchError.
//
// NewFetchError 创建一个新的FetchError。
//
// Parameters:
//   - kind: ErrNetwork, ErrDecode or ErrAborted
//   - key: The cache key
//   - page: The requested page
//   - err: The underlying cause
//
// Returns:
//   - *FetchError: A new fetch error instance
func NewFetchError(kind error, key string, page int, err error) *FetchError {
	return &FetchError{Kind: kind, Key: key, Page: page, Err: err}
}

// IsNetwork returns true if the error is a transport failure.
//
// IsNetwork 如果错误为传输失败，则返回true。
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsDecode returns true if the error is a response decoding failure.
//
// IsDecode 如果错误为响应解码失败，则返回true。
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsAborted returns true if the fetch was superseded.
//
// IsAborted 如果请求已被取代，则返回true。
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

// IsRetryable returns true for errors the user may retry manually.
// Aborts are not failures and are never retryable.
//
// IsRetryable 对用户可以手动重试的错误返回true。取消不属于失败，不可重试。
func IsRetryable(err error) bool {
	return err != nil && !IsAborted(err) && (IsNetwork(err) || IsDecode(err))
}

// IsClosed returns true if the error indicates that the cache is closed.
//
// IsClosed 如果错误表示缓存已关闭，则返回true。
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsNoNextPage returns true if the series has no further page.
//
// IsNoNextPage 如果序列没有更多页，则返回true。
func IsNoNextPage(err error) bool {
	return errors.Is(err, ErrNoNextPage)
}

// KindOf returns a short label for the error kind, used in logs and metrics.
// KindOf 返回错误类型的简短标签，用于日志和指标。
func KindOf(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsAborted(err):
		return "aborted"
	case IsDecode(err):
		return "decode"
	case IsNetwork(err):
		return "network"
	default:
		return "other"
	}
}

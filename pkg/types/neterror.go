package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
//                              NetErrorKind - 网络错误类别
// ============================================================================

// NetErrorKind 网络错误类别
//
// 封闭集合，每个 HTTP/传输失败类别对应一个值。
type NetErrorKind int

const (
	// KindNetError 兜底类别
	KindNetError NetErrorKind = iota
	// KindBadRequest 400
	KindBadRequest
	// KindUnauthorized 401
	KindUnauthorized
	// KindForbidden 403
	KindForbidden
	// KindNotFound 404
	KindNotFound
	// KindRateLimited 429
	KindRateLimited
	// KindUpstream5xx 5xx
	KindUpstream5xx
	// KindClient4xx 其他 4xx
	KindClient4xx
	// KindTimeout 传输超时
	KindTimeout
	// KindDNSFailure DNS 解析失败
	KindDNSFailure
	// KindConnectionFailed 连接失败
	KindConnectionFailed
)

// String 返回类别名称
func (k NetErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindRateLimited:
		return "RateLimited"
	case KindUpstream5xx:
		return "Upstream5xx"
	case KindClient4xx:
		return "Client4xx"
	case KindTimeout:
		return "Timeout"
	case KindDNSFailure:
		return "DNSFailure"
	case KindConnectionFailed:
		return "ConnectionFailed"
	default:
		return "NetError"
	}
}

// Retryable 该类别是否属于可重试的失败
//
// 429/5xx 与全部传输层错误可重试；其余 4xx 不可重试。
// 408 被归为 Client4xx，但会话层按状态码单独重试。
func (k NetErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindUpstream5xx, KindTimeout, KindDNSFailure, KindConnectionFailed:
		return true
	default:
		return false
	}
}

// KindForStatus 将 HTTP 状态码映射为错误类别
func KindForStatus(status int) NetErrorKind {
	switch {
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status < 600:
		return KindUpstream5xx
	default:
		return KindClient4xx
	}
}

// ============================================================================
//                              NetError
// ============================================================================

// NetError HTTP 会话产生的类型化错误
type NetError struct {
	// Kind 错误类别
	Kind NetErrorKind

	// Status HTTP 状态码（传输层错误为 0）
	Status int

	// Message 描述信息
	Message string

	// Err 底层错误（可选）
	Err error
}

// NewStatusError 根据 HTTP 状态码创建 NetError
func NewStatusError(status int) *NetError {
	text := http.StatusText(status)
	if text == "" {
		text = "HTTP error"
	}
	return &NetError{
		Kind:    KindForStatus(status),
		Status:  status,
		Message: fmt.Sprintf("%d %s", status, text),
	}
}

// NewNetError 创建指定类别的 NetError
func NewNetError(kind NetErrorKind, err error) *NetError {
	msg := kind.String()
	if err != nil {
		msg = err.Error()
	}
	return &NetError{Kind: kind, Message: msg, Err: err}
}

// Error 实现 error 接口
func (e *NetError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Unwrap 返回底层错误
func (e *NetError) Unwrap() error {
	return e.Err
}

// Is 按类别匹配，使 errors.Is(err, ErrNotFound) 生效
func (e *NetError) Is(target error) bool {
	t, ok := target.(*NetError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf 返回错误链中 NetError 的类别
//
// 不含 NetError 的错误返回 KindNetError。
func KindOf(err error) NetErrorKind {
	var ne *NetError
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return KindNetError
}

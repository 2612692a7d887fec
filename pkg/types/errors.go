package types

import "errors"

// ============================================================================
//                              NetError 哨兵值
// ============================================================================
//
// 哨兵值只用于 errors.Is 按 Kind 匹配，不应直接返回给调用方。

var (
	// ErrNet 通用网络错误
	ErrNet = &NetError{Kind: KindNetError}

	// ErrBadRequest 400
	ErrBadRequest = &NetError{Kind: KindBadRequest}

	// ErrUnauthorized 401
	ErrUnauthorized = &NetError{Kind: KindUnauthorized}

	// ErrForbidden 403
	ErrForbidden = &NetError{Kind: KindForbidden}

	// ErrNotFound 404
	ErrNotFound = &NetError{Kind: KindNotFound}

	// ErrRateLimited 429
	ErrRateLimited = &NetError{Kind: KindRateLimited}

	// ErrUpstream5xx 5xx
	ErrUpstream5xx = &NetError{Kind: KindUpstream5xx}

	// ErrClient4xx 其他 4xx
	ErrClient4xx = &NetError{Kind: KindClient4xx}

	// ErrTimeout 传输超时
	ErrTimeout = &NetError{Kind: KindTimeout}

	// ErrDNSFailure DNS 解析失败
	ErrDNSFailure = &NetError{Kind: KindDNSFailure}

	// ErrConnectionFailed 连接失败
	ErrConnectionFailed = &NetError{Kind: KindConnectionFailed}
)

// ============================================================================
//                              其他公共错误
// ============================================================================

var (
	// ErrEmptyProxyPair 空代理
	ErrEmptyProxyPair = errors.New("empty proxy pair")
)

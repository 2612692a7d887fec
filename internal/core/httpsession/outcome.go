package httpsession

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/warpmc/go-warpcore/pkg/types"
)

// outcomeKind 单次尝试的分类结果
type outcomeKind int

const (
	// outcomeSuccess 返回响应
	outcomeSuccess outcomeKind = iota
	// outcomeRetry 退避后重试
	outcomeRetry
	// outcomeRefresh 401，可尝试刷新令牌
	outcomeRefresh
	// outcomeTerminal 立即失败
	outcomeTerminal
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeSuccess:
		return "success"
	case outcomeRetry:
		return "retry"
	case outcomeRefresh:
		return "refresh"
	default:
		return "terminal"
	}
}

// outcome 单次尝试的结果
//
// 重试循环只根据 kind 分支；err 在重试耗尽或终止时返回给调用方。
type outcome struct {
	kind outcomeKind
	err  *types.NetError

	// markBad 是否向代理池报告失败
	markBad bool

	// honorRetryAfter 是否读取 Retry-After
	honorRetryAfter bool
}

// reason 指标与日志中的原因标签
func (o outcome) reason() string {
	if o.err == nil {
		return o.kind.String()
	}
	return o.err.Kind.String()
}

// classifyStatus 按状态码分类
//
// <400 或在 allowed 中为成功；401 刷新；429 重试（不归咎代理）；
// 408 与 5xx 重试并标记代理失败；其余 4xx 终止。
func classifyStatus(status int, allowed map[int]struct{}) outcome {
	if status < 400 {
		return outcome{kind: outcomeSuccess}
	}
	if _, ok := allowed[status]; ok {
		return outcome{kind: outcomeSuccess}
	}

	err := types.NewStatusError(status)
	switch {
	case status == http.StatusUnauthorized:
		return outcome{kind: outcomeRefresh, err: err}
	case status == http.StatusTooManyRequests:
		return outcome{kind: outcomeRetry, err: err, honorRetryAfter: true}
	case status == http.StatusRequestTimeout, status >= 500 && status < 600:
		return outcome{kind: outcomeRetry, err: err, markBad: true}
	default:
		return outcome{kind: outcomeTerminal, err: err}
	}
}

// classifyTransport 对传输层错误分类，总是可重试并标记代理失败
func classifyTransport(err error) outcome {
	return outcome{
		kind:    outcomeRetry,
		err:     types.NewNetError(transportKind(err), err),
		markBad: true,
	}
}

// transportKind 区分 DNS、超时与其他连接失败
func transportKind(err error) types.NetErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return types.KindDNSFailure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.KindTimeout
	}
	return types.KindConnectionFailed
}

package interfaces

import (
	"context"
	"net/http"
)

// HTTPSession 定义弹性 HTTP 会话接口
//
// 返回的错误总是 *types.NetError。成功时调用方负责关闭 Body。
type HTTPSession interface {
	// Get 发起 GET 请求
	Get(ctx context.Context, service, path string, opts ...RequestOption) (*http.Response, error)

	// Post 发起 POST 请求
	Post(ctx context.Context, service, path string, opts ...RequestOption) (*http.Response, error)

	// RegisterTokenRefresher 注册 401 刷新回调；传 nil 移除
	RegisterTokenRefresher(service string, refresher TokenRefresher)
}

// RequestOptions 单次调用的可选参数
type RequestOptions struct {
	// Params 追加到 URL 的查询参数
	Params map[string][]string

	// Headers 覆盖服务默认头
	Headers http.Header

	// JSONBody 以 JSON 编码的请求体
	JSONBody any

	// AllowedStatuses 视为成功的额外状态码
	AllowedStatuses []int
}

// RequestOption 请求选项函数
type RequestOption func(*RequestOptions)

// TokenRefresher 401 令牌刷新能力
//
// 返回的头会合并进重试请求；返回 nil 头或错误表示不再重试。
type TokenRefresher interface {
	Refresh(ctx context.Context, service string, session HTTPSession, last *http.Response) (http.Header, error)
}

// TokenRefresherFunc 函数适配器
type TokenRefresherFunc func(ctx context.Context, service string, session HTTPSession, last *http.Response) (http.Header, error)

// Refresh 实现 TokenRefresher
func (f TokenRefresherFunc) Refresh(ctx context.Context, service string, session HTTPSession, last *http.Response) (http.Header, error) {
	return f(ctx, service, session, last)
}

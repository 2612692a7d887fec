package httpsession

import (
	"net/http"
	"net/url"

	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
)

// WithParams 追加查询参数
func WithParams(params url.Values) pkgif.RequestOption {
	return func(o *pkgif.RequestOptions) {
		if o.Params == nil {
			o.Params = make(map[string][]string, len(params))
		}
		for k, vs := range params {
			o.Params[k] = append(o.Params[k], vs...)
		}
	}
}

// WithParam 追加单个查询参数
func WithParam(key, value string) pkgif.RequestOption {
	return WithParams(url.Values{key: {value}})
}

// WithHeaders 设置请求头，覆盖服务默认头
func WithHeaders(h http.Header) pkgif.RequestOption {
	return func(o *pkgif.RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(http.Header, len(h))
		}
		for k, vs := range h {
			o.Headers[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}
}

// WithHeader 设置单个请求头
func WithHeader(key, value string) pkgif.RequestOption {
	return func(o *pkgif.RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(http.Header)
		}
		o.Headers.Set(key, value)
	}
}

// WithJSONBody 设置 JSON 请求体
func WithJSONBody(v any) pkgif.RequestOption {
	return func(o *pkgif.RequestOptions) {
		o.JSONBody = v
	}
}

// WithAllowedStatuses 把指定状态码视为成功
func WithAllowedStatuses(statuses ...int) pkgif.RequestOption {
	return func(o *pkgif.RequestOptions) {
		o.AllowedStatuses = append(o.AllowedStatuses, statuses...)
	}
}

func applyOptions(opts []pkgif.RequestOption) pkgif.RequestOptions {
	var o pkgif.RequestOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

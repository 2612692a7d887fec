package types

import (
	"net/url"
	"time"
)

// ============================================================================
//                              ProxyPair
// ============================================================================

// ProxyPair 按协议区分的代理地址
//
// 两个字段通常指向同一个代理；Key 是代理池中的规范键。
type ProxyPair struct {
	HTTP  string `json:"http,omitempty"`
	HTTPS string `json:"https,omitempty"`
}

// NewProxyPair 用同一地址填充两个协议
func NewProxyPair(proxyURL string) ProxyPair {
	return ProxyPair{HTTP: proxyURL, HTTPS: proxyURL}
}

// Key 返回规范键（优先 HTTPS）
func (p ProxyPair) Key() string {
	if p.HTTPS != "" {
		return p.HTTPS
	}
	return p.HTTP
}

// IsZero 是否为空
func (p ProxyPair) IsZero() bool {
	return p.HTTP == "" && p.HTTPS == ""
}

// URLFor 返回指定 scheme 的代理 URL
func (p ProxyPair) URLFor(scheme string) (*url.URL, error) {
	raw := p.HTTP
	if scheme == "https" && p.HTTPS != "" {
		raw = p.HTTPS
	}
	if raw == "" {
		raw = p.Key()
	}
	if raw == "" {
		return nil, ErrEmptyProxyPair
	}
	return url.Parse(raw)
}

// ============================================================================
//                              ProxyStat
// ============================================================================

// ProxyStat 代理状态的只读视图（凭据已脱敏）
type ProxyStat struct {
	URL                 string    `json:"url"`
	Successes           int       `json:"successes"`
	Failures            int       `json:"failures"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Score               float64   `json:"score"`
	LastUsed            time.Time `json:"last_used,omitempty"`
	LastGood            time.Time `json:"last_good,omitempty"`
	StickyDomains       []string  `json:"sticky_domains,omitempty"`
}

// RedactProxyURL 去掉代理 URL 中的密码
func RedactProxyURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultAuthPathPrefix 认证端点的默认路径前缀，这些请求不会触发令牌刷新
const DefaultAuthPathPrefix = "oauth/"

// ServiceConfig 单个上游服务的配置
type ServiceConfig struct {
	// BaseURL 服务根地址
	BaseURL string `json:"base_url"`

	// APIKey 以 api_key 查询参数注入的密钥（调用方已提供时不覆盖）
	APIKey string `json:"api_key,omitempty"`

	// DefaultHeaders 每个请求附带的默认头部
	DefaultHeaders map[string]string `json:"default_headers,omitempty"`

	// QueryParams 每个请求附带的默认查询参数
	QueryParams map[string]string `json:"query_params,omitempty"`

	// RateLimits 限流设置
	RateLimits RateLimitConfig `json:"rate_limits"`

	// Endpoints 命名端点模板，{} 为位置占位符
	Endpoints map[string]string `json:"endpoints,omitempty"`

	// AuthPathPrefixes 认证端点前缀，nil 时使用 oauth/
	AuthPathPrefixes []string `json:"auth_path_prefixes,omitempty"`
}

// RateLimitConfig 服务限流配置
type RateLimitConfig struct {
	// RespectRetryAfter 是否遵守 429 响应的 Retry-After，未设置时为 true
	RespectRetryAfter *bool `json:"respect_retry_after,omitempty"`

	// RequestsPerSecond 客户端限速，0 表示不限速
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`

	// Burst 突发请求数，0 时按 1 处理
	Burst int `json:"burst,omitempty"`
}

// ShouldRespectRetryAfter 是否遵守 Retry-After
func (r RateLimitConfig) ShouldRespectRetryAfter() bool {
	return r.RespectRetryAfter == nil || *r.RespectRetryAfter
}

// Validate 验证服务配置
func (c ServiceConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	if c.RateLimits.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must be non-negative")
	}
	if c.RateLimits.Burst < 0 {
		return fmt.Errorf("burst must be non-negative")
	}
	return nil
}

// AuthPrefixes 返回认证端点前缀（去掉开头的 /）
func (c ServiceConfig) AuthPrefixes() []string {
	if c.AuthPathPrefixes == nil {
		return []string{DefaultAuthPathPrefix}
	}
	out := make([]string, 0, len(c.AuthPathPrefixes))
	for _, p := range c.AuthPathPrefixes {
		out = append(out, strings.TrimLeft(p, "/"))
	}
	return out
}

// IsAuthPath 判断路径是否属于认证端点
func (c ServiceConfig) IsAuthPath(path string) bool {
	path = strings.TrimLeft(path, "/")
	for _, p := range c.AuthPrefixes() {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Clone 返回深拷贝
func (c ServiceConfig) Clone() ServiceConfig {
	out := c
	out.DefaultHeaders = cloneStringMap(c.DefaultHeaders)
	out.QueryParams = cloneStringMap(c.QueryParams)
	out.Endpoints = cloneStringMap(c.Endpoints)
	if c.AuthPathPrefixes != nil {
		out.AuthPathPrefixes = append([]string(nil), c.AuthPathPrefixes...)
	}
	if c.RateLimits.RespectRetryAfter != nil {
		v := *c.RateLimits.RespectRetryAfter
		out.RateLimits.RespectRetryAfter = &v
	}
	return out
}

// WithHeader 设置默认头部
func (c ServiceConfig) WithHeader(key, value string) ServiceConfig {
	c = c.Clone()
	if c.DefaultHeaders == nil {
		c.DefaultHeaders = map[string]string{}
	}
	c.DefaultHeaders[key] = value
	return c
}

// WithEndpoint 设置命名端点
func (c ServiceConfig) WithEndpoint(key, tmpl string) ServiceConfig {
	c = c.Clone()
	if c.Endpoints == nil {
		c.Endpoints = map[string]string{}
	}
	c.Endpoints[key] = tmpl
	return c
}

// WithRespectRetryAfter 设置是否遵守 Retry-After
func (c ServiceConfig) WithRespectRetryAfter(v bool) ServiceConfig {
	c = c.Clone()
	c.RateLimits.RespectRetryAfter = &v
	return c
}

// WithRateLimit 设置客户端限速
func (c ServiceConfig) WithRateLimit(rps float64, burst int) ServiceConfig {
	c.RateLimits.RequestsPerSecond = rps
	c.RateLimits.Burst = burst
	return c
}

// MergeServices 将 overrides 合并到 base，返回新的映射
//
// 同名服务的非零字段覆盖基础值，映射字段按键合并。
func MergeServices(base, overrides map[string]ServiceConfig) map[string]ServiceConfig {
	out := make(map[string]ServiceConfig, len(base)+len(overrides))
	for name, svc := range base {
		out[name] = svc.Clone()
	}
	for name, o := range overrides {
		cur, ok := out[name]
		if !ok {
			out[name] = o.Clone()
			continue
		}
		if o.BaseURL != "" {
			cur.BaseURL = o.BaseURL
		}
		if o.APIKey != "" {
			cur.APIKey = o.APIKey
		}
		cur.DefaultHeaders = mergeStringMap(cur.DefaultHeaders, o.DefaultHeaders)
		cur.QueryParams = mergeStringMap(cur.QueryParams, o.QueryParams)
		cur.Endpoints = mergeStringMap(cur.Endpoints, o.Endpoints)
		if o.RateLimits.RespectRetryAfter != nil {
			v := *o.RateLimits.RespectRetryAfter
			cur.RateLimits.RespectRetryAfter = &v
		}
		if o.RateLimits.RequestsPerSecond != 0 {
			cur.RateLimits.RequestsPerSecond = o.RateLimits.RequestsPerSecond
		}
		if o.RateLimits.Burst != 0 {
			cur.RateLimits.Burst = o.RateLimits.Burst
		}
		if o.AuthPathPrefixes != nil {
			cur.AuthPathPrefixes = append([]string(nil), o.AuthPathPrefixes...)
		}
		out[name] = cur
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeStringMap(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	out := cloneStringMap(base)
	if out == nil {
		out = make(map[string]string, len(over))
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

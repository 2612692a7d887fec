package httpsession

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/warpmc/go-warpcore/config"
)

// apiKeyParam 以查询参数注入的密钥名
const apiKeyParam = "api_key"

// URLManager 根据服务配置构建 URL 与默认头部
//
// 纯配置驱动，不做网络 I/O，构造后只读。
type URLManager struct {
	services map[string]config.ServiceConfig
	bases    map[string]*url.URL
}

// NewURLManager 创建 URLManager
//
// 基础地址无法解析时返回错误。
func NewURLManager(services map[string]config.ServiceConfig) (*URLManager, error) {
	m := &URLManager{
		services: make(map[string]config.ServiceConfig, len(services)),
		bases:    make(map[string]*url.URL, len(services)),
	}
	for name, svc := range services {
		base, err := url.Parse(ensureTrailingSlash(svc.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("service %s: invalid base url: %w", name, err)
		}
		m.services[name] = svc.Clone()
		m.bases[name] = base
	}
	return m, nil
}

// Services 返回已配置的服务名（排序）
func (m *URLManager) Services() []string {
	out := make([]string, 0, len(m.services))
	for name := range m.services {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Service 返回服务配置副本
func (m *URLManager) Service(service string) (config.ServiceConfig, error) {
	svc, ok := m.services[service]
	if !ok {
		return config.ServiceConfig{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownService, service, strings.Join(m.Services(), ", "))
	}
	return svc.Clone(), nil
}

// Build 构建完整 URL 并返回服务默认头部
//
// 查询参数优先级：调用方 > api_key > 服务默认参数。
// path 为绝对 URL 时不拼接基础地址。
func (m *URLManager) Build(service, path string, params url.Values) (string, http.Header, error) {
	svc, ok := m.services[service]
	if !ok {
		_, err := m.Service(service)
		return "", nil, err
	}

	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	u := m.bases[service].ResolveReference(ref)

	query := u.Query()
	for k, v := range svc.QueryParams {
		if !query.Has(k) && !params.Has(k) {
			query.Set(k, v)
		}
	}
	if svc.APIKey != "" && !params.Has(apiKeyParam) {
		query.Set(apiKeyParam, svc.APIKey)
	}
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	return u.String(), serviceHeader(svc), nil
}

// BuildFromEndpoint 解析命名端点、填充占位符后构建 URL
//
//	BuildFromEndpoint("tmdb", "movie_details", []any{550}, url.Values{"language": {"en-US"}})
func (m *URLManager) BuildFromEndpoint(service, key string, args []any, params url.Values) (string, http.Header, error) {
	tmpl, err := m.Endpoint(service, key)
	if err != nil {
		return "", nil, err
	}
	path, err := formatTemplate(tmpl, args)
	if err != nil {
		return "", nil, fmt.Errorf("endpoint %s.%s: %w", service, key, err)
	}
	return m.Build(service, path, params)
}

// Endpoint 返回命名端点模板
func (m *URLManager) Endpoint(service, key string) (string, error) {
	svc, err := m.Service(service)
	if err != nil {
		return "", err
	}
	tmpl, ok := svc.Endpoints[key]
	if !ok {
		return "", fmt.Errorf("%w %q for service %q", ErrUnknownEndpoint, key, service)
	}
	return tmpl, nil
}

// RateLimits 返回服务限流配置
func (m *URLManager) RateLimits(service string) (config.RateLimitConfig, error) {
	svc, err := m.Service(service)
	if err != nil {
		return config.RateLimitConfig{}, err
	}
	return svc.RateLimits, nil
}

// ShouldRespectRetryAfter 是否遵守 Retry-After，未配置的服务按 true 处理
func (m *URLManager) ShouldRespectRetryAfter(service string) bool {
	svc, ok := m.services[service]
	if !ok {
		return true
	}
	return svc.RateLimits.ShouldRespectRetryAfter()
}

// ServiceHeaders 返回服务默认头部
func (m *URLManager) ServiceHeaders(service string) (http.Header, error) {
	svc, err := m.Service(service)
	if err != nil {
		return nil, err
	}
	return serviceHeader(svc), nil
}

// IsAuthPath 判断路径是否为服务的认证端点
func (m *URLManager) IsAuthPath(service, path string) bool {
	svc, ok := m.services[service]
	if !ok {
		return strings.HasPrefix(strings.TrimLeft(path, "/"), config.DefaultAuthPathPrefix)
	}
	return svc.IsAuthPath(path)
}

func serviceHeader(svc config.ServiceConfig) http.Header {
	h := make(http.Header, len(svc.DefaultHeaders))
	for k, v := range svc.DefaultHeaders {
		h.Set(k, v)
	}
	return h
}

func ensureTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

// formatTemplate 填充 {} 与 {N} 占位符，参数做路径转义
func formatTemplate(tmpl string, args []any) (string, error) {
	var (
		b    strings.Builder
		next int
	)
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '{' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		field := tmpl[i+1 : i+end]
		idx := next
		if field != "" {
			n, err := strconv.Atoi(field)
			if err != nil {
				// 非位置占位符原样保留
				b.WriteString(tmpl[i : i+end+1])
				i += end
				continue
			}
			idx = n
		} else {
			next++
		}
		if idx < 0 || idx >= len(args) {
			return "", fmt.Errorf("%w: placeholder %d, %d args", ErrEndpointArgs, idx, len(args))
		}
		b.WriteString(url.PathEscape(fmt.Sprint(args[idx])))
		i += end
	}
	return b.String(), nil
}

package config

import (
	"errors"
	"fmt"
	"time"
)

// 代理池文件格式
const (
	// PoolFormatHostPortUserPass 每行 host:port:user:pass
	PoolFormatHostPortUserPass = "host:port:user:pass"

	// PoolFormatHostPort 每行 host:port
	PoolFormatHostPort = "host:port"

	// PoolFormatURL 每行一个完整代理 URL
	PoolFormatURL = "url"
)

// ProxyConfig 代理池配置
type ProxyConfig struct {
	// Enabled 是否启用代理
	Enabled bool `json:"enabled"`

	// Pool 代理池来源
	Pool ProxyPoolConfig `json:"pool"`

	// Rotation 轮换策略
	Rotation ProxyRotationConfig `json:"rotation"`

	// Domains 按域名覆盖的设置
	Domains map[string]DomainProxyConfig `json:"domains,omitempty"`
}

// ProxyPoolConfig 代理池文件配置
type ProxyPoolConfig struct {
	// File 代理池文件路径，支持 ${VAR} 展开
	File string `json:"file"`

	// Format 行格式
	Format string `json:"format"`
}

// ProxyRotationConfig 代理轮换配置
type ProxyRotationConfig struct {
	// Stickiness 域名粘性持续时间
	Stickiness Duration `json:"stickiness"`

	// MaxFailuresBeforeRotate 粘性代理连续失败多少次后轮换
	MaxFailuresBeforeRotate int `json:"max_failures_before_rotate"`

	// DecayHalfLife 分数衰减半衰期
	DecayHalfLife Duration `json:"decay_half_life"`
}

// DomainProxyConfig 单个域名的代理设置
type DomainProxyConfig struct {
	// Stickiness 覆盖默认粘性时长，0 表示使用默认值
	Stickiness Duration `json:"stickiness,omitempty"`
}

// DefaultProxyConfig 返回默认代理配置
func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		Enabled: false,
		Pool: ProxyPoolConfig{
			Format: PoolFormatHostPortUserPass,
		},
		Rotation: ProxyRotationConfig{
			Stickiness:              Duration(600 * time.Second),
			MaxFailuresBeforeRotate: 2,
			DecayHalfLife:           Duration(900 * time.Second),
		},
		Domains: map[string]DomainProxyConfig{},
	}
}

// Validate 验证代理配置
func (c ProxyConfig) Validate() error {
	if c.Rotation.Stickiness < 0 {
		return errors.New("proxy stickiness must be non-negative")
	}
	if c.Rotation.MaxFailuresBeforeRotate < 1 {
		return errors.New("max failures before rotate must be at least 1")
	}
	if c.Rotation.DecayHalfLife <= 0 {
		return errors.New("decay half-life must be positive")
	}
	for domain, d := range c.Domains {
		if d.Stickiness < 0 {
			return fmt.Errorf("domain %q: stickiness must be non-negative", domain)
		}
	}
	return nil
}

// StickinessFor 返回指定域名的粘性时长
func (c ProxyConfig) StickinessFor(domain string) time.Duration {
	if d, ok := c.Domains[domain]; ok && d.Stickiness > 0 {
		return d.Stickiness.Duration()
	}
	return c.Rotation.Stickiness.Duration()
}

// WithEnabled 设置是否启用代理
func (c ProxyConfig) WithEnabled(enabled bool) ProxyConfig {
	c.Enabled = enabled
	return c
}

// WithPoolFile 设置代理池文件
func (c ProxyConfig) WithPoolFile(path, format string) ProxyConfig {
	c.Pool.File = path
	if format != "" {
		c.Pool.Format = format
	}
	return c
}

// WithStickiness 设置默认粘性时长
func (c ProxyConfig) WithStickiness(d time.Duration) ProxyConfig {
	c.Rotation.Stickiness = Duration(d)
	return c
}

// WithDomainStickiness 设置单个域名的粘性时长
func (c ProxyConfig) WithDomainStickiness(domain string, d time.Duration) ProxyConfig {
	domains := make(map[string]DomainProxyConfig, len(c.Domains)+1)
	for k, v := range c.Domains {
		domains[k] = v
	}
	domains[domain] = DomainProxyConfig{Stickiness: Duration(d)}
	c.Domains = domains
	return c
}

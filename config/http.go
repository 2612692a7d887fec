package config

import (
	"errors"
	"time"
)

// HTTPConfig 弹性 HTTP 会话配置
type HTTPConfig struct {
	// Timeout 单次请求超时
	Timeout Duration `json:"timeout"`

	// RetryAfterCap Retry-After 的最大等待时间
	RetryAfterCap Duration `json:"retry_after_cap"`

	// Retry 重试与退避
	Retry RetryConfig `json:"retry"`

	// MaxIdleConns 空闲连接总数上限
	MaxIdleConns int `json:"max_idle_conns"`

	// MaxIdleConnsPerHost 每个主机的空闲连接上限
	MaxIdleConnsPerHost int `json:"max_idle_conns_per_host"`

	// UserAgent 默认 User-Agent
	UserAgent string `json:"user_agent"`
}

// RetryConfig 重试配置
type RetryConfig struct {
	// MaxAttempts 最大尝试次数（包括首次）
	MaxAttempts int `json:"max_attempts"`

	// BaseBackoff 基础退避
	BaseBackoff Duration `json:"base_backoff"`

	// MaxBackoff 退避上限（不含抖动）
	MaxBackoff Duration `json:"max_backoff"`

	// Jitter 额外随机抖动上限
	Jitter Duration `json:"jitter"`
}

// DefaultHTTPConfig 返回默认 HTTP 配置
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:       Duration(20 * time.Second),
		RetryAfterCap: Duration(30 * time.Second),
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseBackoff: Duration(300 * time.Millisecond),
			MaxBackoff:  Duration(6 * time.Second),
			Jitter:      Duration(250 * time.Millisecond),
		},
		MaxIdleConns:        8,
		MaxIdleConnsPerHost: 16,
		UserAgent:           "warp-mediacenter/1.0",
	}
}

// Validate 验证 HTTP 配置
func (c HTTPConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("http timeout must be positive")
	}
	if c.RetryAfterCap < 0 {
		return errors.New("retry-after cap must be non-negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.Retry.BaseBackoff < 0 || c.Retry.MaxBackoff < 0 || c.Retry.Jitter < 0 {
		return errors.New("backoff durations must be non-negative")
	}
	if c.Retry.MaxBackoff < c.Retry.BaseBackoff {
		return errors.New("max backoff must not be less than base backoff")
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConnsPerHost < 0 {
		return errors.New("idle connection limits must be non-negative")
	}
	return nil
}

// WithTimeout 设置请求超时
func (c HTTPConfig) WithTimeout(d time.Duration) HTTPConfig {
	c.Timeout = Duration(d)
	return c
}

// WithRetry 设置重试参数
func (c HTTPConfig) WithRetry(maxAttempts int, base, max, jitter time.Duration) HTTPConfig {
	c.Retry = RetryConfig{
		MaxAttempts: maxAttempts,
		BaseBackoff: Duration(base),
		MaxBackoff:  Duration(max),
		Jitter:      Duration(jitter),
	}
	return c
}

// WithRetryAfterCap 设置 Retry-After 上限
func (c HTTPConfig) WithRetryAfterCap(d time.Duration) HTTPConfig {
	c.RetryAfterCap = Duration(d)
	return c
}

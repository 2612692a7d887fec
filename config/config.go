package config

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

// Config warpcore 完整配置
//
// 各子配置分别位于独立文件中：
//
//	log.go          日志
//	resource.go     资源管理
//	task.go         任务执行器
//	proxy.go        代理池
//	http.go         HTTP 会话
//	services.go     上游服务
//	diagnostics.go  诊断
//
// 配置可以通过 NewConfig 获取默认值，也可以通过 Load 从 JSON/YAML 文件读取。
type Config struct {
	// Log 日志配置
	Log LogConfig `json:"log"`

	// Resource 资源管理配置
	Resource ResourceConfig `json:"resource"`

	// Tasks 任务执行器配置
	Tasks TaskConfig `json:"tasks"`

	// Proxy 代理池配置
	Proxy ProxyConfig `json:"proxy"`

	// HTTP HTTP 会话配置
	HTTP HTTPConfig `json:"http"`

	// Services 上游服务，键为服务名（如 tmdb、trakt）
	Services map[string]ServiceConfig `json:"services"`

	// Diagnostics 诊断配置
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
}

// NewConfig 创建默认配置
//
// 返回的配置可直接使用，但 Services 为空，HTTP 会话需要至少一个服务才有意义。
func NewConfig() *Config {
	return &Config{
		Log:         DefaultLogConfig(),
		Resource:    DefaultResourceConfig(),
		Tasks:       DefaultTaskConfig(),
		Proxy:       DefaultProxyConfig(),
		HTTP:        DefaultHTTPConfig(),
		Services:    map[string]ServiceConfig{},
		Diagnostics: DefaultDiagnosticsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 与逐项返回不同，这里会汇总所有子配置的错误，
// 返回的错误可用 multierr.Errors 拆分。
func (c *Config) Validate() error {
	var err error
	err = multierr.Append(err, prefixed("log", c.Log.Validate()))
	err = multierr.Append(err, prefixed("resource", c.Resource.Validate()))
	err = multierr.Append(err, prefixed("tasks", c.Tasks.Validate()))
	err = multierr.Append(err, prefixed("proxy", c.Proxy.Validate()))
	err = multierr.Append(err, prefixed("http", c.HTTP.Validate()))
	err = multierr.Append(err, prefixed("diagnostics", c.Diagnostics.Validate()))

	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		err = multierr.Append(err, prefixed("services."+name, c.Services[name].Validate()))
	}
	return err
}

// Service 返回指定服务的配置
func (c *Config) Service(name string) (ServiceConfig, bool) {
	svc, ok := c.Services[name]
	return svc, ok
}

// WithService 添加或替换服务配置
func (c *Config) WithService(name string, svc ServiceConfig) *Config {
	if c.Services == nil {
		c.Services = map[string]ServiceConfig{}
	}
	c.Services[name] = svc
	return c
}

// Clone 返回深拷贝
func (c *Config) Clone() *Config {
	out := *c
	out.Services = make(map[string]ServiceConfig, len(c.Services))
	for name, svc := range c.Services {
		out.Services[name] = svc.Clone()
	}
	out.Proxy.Domains = make(map[string]DomainProxyConfig, len(c.Proxy.Domains))
	for k, v := range c.Proxy.Domains {
		out.Proxy.Domains[k] = v
	}
	return &out
}

func prefixed(section string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", section, err)
}

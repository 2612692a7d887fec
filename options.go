package warpcore

import (
	"errors"
	"fmt"

	"go.uber.org/fx"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/resourcemgr"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config *config.Config

	// sampler 替换系统采样器（测试或容器环境）
	sampler resourcemgr.Sampler

	// refreshers 启动前注册的 401 刷新回调
	refreshers map[string]pkgif.TokenRefresher

	// installLogger 是否按配置安装进程 logger
	installLogger bool

	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{
		config:        config.NewConfig(),
		refreshers:    make(map[string]pkgif.TokenRefresher),
		installLogger: true,
	}
}

// WithConfig 使用完整配置
//
// 配置会被复制，之后对 cfg 的修改不影响 Core。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = cfg.Clone()
		return nil
	}
}

// WithConfigFile 从 JSON 或 YAML 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		o.config = cfg
		return nil
	}
}

// WithService 添加或覆盖一个服务定义
func WithService(name string, svc config.ServiceConfig) Option {
	return func(o *options) error {
		if name == "" {
			return errors.New("service name is empty")
		}
		o.config.WithService(name, svc)
		return nil
	}
}

// WithTaskWorkers 设置期望的 worker 数
func WithTaskWorkers(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("task workers must be at least 1, got %d", n)
		}
		o.config.Tasks.Workers = n
		return nil
	}
}

// WithProxyPool 启用代理并指定代理池文件
func WithProxyPool(path, format string) Option {
	return func(o *options) error {
		o.config.Proxy = o.config.Proxy.WithEnabled(true).WithPoolFile(path, format)
		return nil
	}
}

// WithIntrospect 启用本地诊断服务
func WithIntrospect(addr string) Option {
	return func(o *options) error {
		o.config.Diagnostics = o.config.Diagnostics.WithIntrospect(addr)
		return nil
	}
}

// WithSampler 替换资源采样器
func WithSampler(s resourcemgr.Sampler) Option {
	return func(o *options) error {
		o.sampler = s
		return nil
	}
}

// WithTokenRefresher 为服务注册 401 刷新回调
func WithTokenRefresher(service string, refresher pkgif.TokenRefresher) Option {
	return func(o *options) error {
		o.refreshers[service] = refresher
		return nil
	}
}

// WithoutLoggerInstall 不安装进程 logger，由调用方自行管理 slog 默认 handler
func WithoutLoggerInstall() Option {
	return func(o *options) error {
		o.installLogger = false
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
//
// 用于注入额外模块或替换默认提供者（fx.Decorate）。
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}

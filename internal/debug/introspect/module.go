package introspect

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/warpmc/go-warpcore/config"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
)

// Module 是诊断服务的 Fx 模块
var Module = fx.Module("introspect",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 诊断服务依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config        `optional:"true"`
	Resources  pkgif.ResourceManager `optional:"true"`
	Proxies    pkgif.ProxyManager    `optional:"true"`
	Tasks      pkgif.TaskRunner      `optional:"true"`
	Gatherer   prometheus.Gatherer   `optional:"true"`
}

// ConfigFromUnified 从统一配置创建诊断服务配置，未启用时返回 nil
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Diagnostics.EnableIntrospect {
		return nil
	}
	addr := cfg.Diagnostics.IntrospectAddr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Config{
		Addr:              addr,
		RequestedWorkers:  cfg.Tasks.Workers,
		MinMemPerWorkerMB: cfg.Tasks.EstimatedTaskMemoryMB,
	}
}

// NewFromParams 从参数创建诊断服务，未启用时返回 nil
func NewFromParams(p Params) *Server {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if cfg == nil {
		return nil
	}

	cfg.Resources = p.Resources
	cfg.Proxies = p.Proxies
	cfg.Tasks = p.Tasks
	if p.UnifiedCfg.Diagnostics.EnableMetrics {
		cfg.Gatherer = p.Gatherer
	}

	return New(*cfg)
}

// registerLifecycle 注册生命周期钩子，未启用时跳过
func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}

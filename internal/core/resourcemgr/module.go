package resourcemgr

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
)

// ConfigFromUnified 从统一配置获取资源管理配置
func ConfigFromUnified(cfg *config.Config) config.ResourceConfig {
	if cfg == nil {
		return config.DefaultResourceConfig()
	}
	return cfg.Resource
}

// Params ResourceManager 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	Sampler    Sampler          `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

// Module 是 resourcemgr 的 Fx 模块
var Module = fx.Module("resourcemgr",
	fx.Provide(
		ProvideManager,
		func(m *Manager) pkgif.ResourceManager { return m },
	),
	fx.Invoke(registerLifecycle),
)

// ProvideManager 提供 Manager 实例
func ProvideManager(p Params) *Manager {
	return New(ConfigFromUnified(p.UnifiedCfg),
		WithSampler(p.Sampler),
		WithClock(p.Clock),
		WithMetrics(p.Metrics),
	)
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			snap := m.Snapshot(true).Rounded()
			logger.Info("资源管理器已启动",
				"total_ram_mb", snap.TotalRAMMB,
				"available_ram_mb", snap.AvailableRAMMB,
				"cpu_count", snap.CPUCount)
			return nil
		},
	})
}

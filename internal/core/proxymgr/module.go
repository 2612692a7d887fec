package proxymgr

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
)

// ConfigFromUnified 从统一配置获取代理配置
func ConfigFromUnified(cfg *config.Config) config.ProxyConfig {
	if cfg == nil {
		return config.DefaultProxyConfig()
	}
	return cfg.Proxy
}

// Params ProxyManager 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

// Module 是 proxymgr 的 Fx 模块
var Module = fx.Module("proxymgr",
	fx.Provide(
		ProvideManager,
		func(m *Manager) pkgif.ProxyManager { return m },
	),
)

// ProvideManager 提供 Manager 实例
func ProvideManager(p Params) *Manager {
	return New(ConfigFromUnified(p.UnifiedCfg),
		WithClock(p.Clock),
		WithMetrics(p.Metrics),
	)
}

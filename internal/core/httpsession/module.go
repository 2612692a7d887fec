package httpsession

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
)

// ConfigFromUnified 从统一配置获取 HTTP 配置与服务表
func ConfigFromUnified(cfg *config.Config) (config.HTTPConfig, map[string]config.ServiceConfig) {
	if cfg == nil {
		return config.DefaultHTTPConfig(), nil
	}
	return cfg.HTTP, cfg.Services
}

// Params Session 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config     `optional:"true"`
	Proxies    pkgif.ProxyManager `optional:"true"`
	Clock      clock.Clock        `optional:"true"`
	Metrics    *metrics.Metrics   `optional:"true"`
}

// Module 是 httpsession 的 Fx 模块
var Module = fx.Module("httpsession",
	fx.Provide(
		ProvideSession,
		func(s *Session) pkgif.HTTPSession { return s },
	),
	fx.Invoke(registerLifecycle),
)

// ProvideSession 提供 Session 实例
func ProvideSession(p Params) (*Session, error) {
	httpCfg, services := ConfigFromUnified(p.UnifiedCfg)
	return New(httpCfg, services,
		WithProxyManager(p.Proxies),
		WithClock(p.Clock),
		WithMetrics(p.Metrics),
	)
}

func registerLifecycle(lc fx.Lifecycle, s *Session) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Debug("HTTP 会话已就绪", "services", s.URLs().Services())
			return nil
		},
		OnStop: func(_ context.Context) error {
			s.Close()
			return nil
		},
	})
}

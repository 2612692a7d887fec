package taskrunner

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
)

// ConfigFromUnified 从统一配置获取任务执行器配置
func ConfigFromUnified(cfg *config.Config) config.TaskConfig {
	if cfg == nil {
		return config.DefaultTaskConfig()
	}
	return cfg.Tasks
}

// Params Runner 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config        `optional:"true"`
	Resources  pkgif.ResourceManager `optional:"true"`
	Clock      clock.Clock           `optional:"true"`
	Metrics    *metrics.Metrics      `optional:"true"`
}

// Module 是 taskrunner 的 Fx 模块
var Module = fx.Module("taskrunner",
	fx.Provide(
		ProvideRunner,
		func(r *Runner) pkgif.TaskRunner { return r },
	),
	fx.Invoke(registerLifecycle),
)

// ProvideRunner 提供 Runner 实例
func ProvideRunner(p Params) (*Runner, error) {
	return New(ConfigFromUnified(p.UnifiedCfg), p.Resources,
		WithClock(p.Clock),
		WithMetrics(p.Metrics),
	)
}

// registerLifecycle 停止时等待在途任务，ctx 到期则取消剩余排队任务
func registerLifecycle(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				_ = r.Close(true)
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				logger.Warn("等待在途任务超时，取消排队任务", "stats", r.Stats())
				_ = r.Close(false)
				return ctx.Err()
			}
		},
	})
}

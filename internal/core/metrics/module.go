package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/warpmc/go-warpcore/config"
)

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled: true,
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled: cfg.Diagnostics.EnableMetrics,
	}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result Metrics 模块输出
type Result struct {
	fx.Out

	Metrics  *Metrics
	Gatherer prometheus.Gatherer
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(ProvideMetrics),
)

// ProvideMetrics 提供 Metrics 实例
//
// 禁用时 Metrics 为 nil（所有记录方法空值安全），Gatherer 为空 registry。
func ProvideMetrics(p Params) Result {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if !cfg.Enabled {
		return Result{Gatherer: prometheus.NewRegistry()}
	}
	m := New()
	return Result{Metrics: m, Gatherer: m.Gatherer()}
}

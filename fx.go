package warpcore

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/warpmc/go-warpcore/internal/core/httpsession"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	"github.com/warpmc/go-warpcore/internal/core/proxymgr"
	"github.com/warpmc/go-warpcore/internal/core/resourcemgr"
	"github.com/warpmc/go-warpcore/internal/core/taskrunner"
	"github.com/warpmc/go-warpcore/internal/debug/introspect"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
)

var fxLogger = log.Logger("warpcore/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Metrics
//  2. ResourceManager → TaskRunner
//  3. ProxyManager → HTTPSession
//  4. Introspect（条件加载）
func buildFxApp(o *options, c *Core) (*fx.App, error) {
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),
		metrics.Module,
	}

	if o.sampler != nil {
		sampler := o.sampler
		modules = append(modules, fx.Provide(func() resourcemgr.Sampler { return sampler }))
	}

	modules = append(modules,
		resourcemgr.Module,
		taskrunner.Module,
		proxymgr.Module,
		httpsession.Module,
	)

	if o.config.Diagnostics.EnableIntrospect {
		modules = append(modules, introspect.Module)
	}

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectCoreComponents(c)),
		fx.Invoke(registerTokenRefreshers(o)),
	)

	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	fxLogger.Debug("Fx 应用已构建", "introspect", o.config.Diagnostics.EnableIntrospect)
	return app, nil
}

// coreComponents Core 需要的组件
type coreComponents struct {
	fx.In

	Metrics    *metrics.Metrics `optional:"true"`
	Resources  *resourcemgr.Manager
	Tasks      *taskrunner.Runner
	Proxies    *proxymgr.Manager
	HTTP       *httpsession.Session
	Introspect *introspect.Server `optional:"true"`
}

func injectCoreComponents(c *Core) func(coreComponents) {
	return func(in coreComponents) {
		c.metrics = in.Metrics
		c.resources = in.Resources
		c.tasks = in.Tasks
		c.proxies = in.Proxies
		c.http = in.HTTP
		c.introspect = in.Introspect
	}
}

func registerTokenRefreshers(o *options) func(*httpsession.Session) {
	return func(s *httpsession.Session) {
		for service, r := range o.refreshers {
			s.RegisterTokenRefresher(service, r)
		}
	}
}

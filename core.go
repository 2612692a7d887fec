package warpcore

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/httpsession"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	"github.com/warpmc/go-warpcore/internal/core/proxymgr"
	"github.com/warpmc/go-warpcore/internal/core/resourcemgr"
	"github.com/warpmc/go-warpcore/internal/core/taskrunner"
	"github.com/warpmc/go-warpcore/internal/debug/introspect"
	logutil "github.com/warpmc/go-warpcore/internal/util/logger"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
	"github.com/warpmc/go-warpcore/pkg/types"
)

var logger = log.Logger("warpcore")

// Version 当前版本
const Version = "v0.1.0"

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Close 使用的停止超时
	stopTimeout = 30 * time.Second
)

// Core 组装好的执行核心
//
// 生命周期：New → Start → Stop/Close。停止后不能再次启动，
// 因为任务执行器关闭后不可复用。
type Core struct {
	config *config.Config
	app    *fx.App

	mu      sync.Mutex
	started bool
	closed  bool

	metrics    *metrics.Metrics
	resources  *resourcemgr.Manager
	tasks      *taskrunner.Runner
	proxies    *proxymgr.Manager
	http       *httpsession.Session
	introspect *introspect.Server
}

// New 创建 Core，但不启动
//
//	core, err := warpcore.New(
//	    warpcore.WithConfigFile("warpcore.yaml"),
//	    warpcore.WithTaskWorkers(8),
//	)
func New(opts ...Option) (*Core, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if o.installLogger {
		logutil.Install(logutil.FromLogConfig(o.config.Log))
	}

	c := &Core{config: o.config}

	app, err := buildFxApp(o, c)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	c.app = app
	return c, nil
}

// Start 创建并启动 Core
func Start(ctx context.Context, opts ...Option) (*Core, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start core: %w", err)
	}
	return c, nil
}

// Start 启动所有组件
func (c *Core) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCoreClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := c.app.Start(startCtx); err != nil {
		logger.Error("启动失败", "error", err)
		return fmt.Errorf("start: %w", err)
	}

	c.started = true
	logger.Info("执行核心已启动",
		"version", Version,
		"workers", c.tasks.Workers(),
		"proxies", c.proxies.Len(),
		"services", len(c.config.Services))
	return nil
}

// Stop 停止所有组件
//
// 等待在途任务完成直到 ctx 到期。可以重复调用。
func (c *Core) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if !c.started {
		// 未启动时 OnStop 钩子不会执行，直接释放执行器
		return c.tasks.Close(false)
	}

	if err := c.app.Stop(ctx); err != nil {
		logger.Warn("停止时出错", "error", err)
		return fmt.Errorf("stop: %w", err)
	}
	logger.Info("执行核心已停止")
	return nil
}

// Close 以默认超时停止
func (c *Core) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return c.Stop(ctx)
}

func (c *Core) checkRunning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCoreClosed
	}
	if !c.started {
		return ErrNotStarted
	}
	return nil
}

// ============================================================================
//                              访问器
// ============================================================================

// Config 返回配置副本
func (c *Core) Config() *config.Config {
	return c.config.Clone()
}

// Resources 返回资源管理器
func (c *Core) Resources() pkgif.ResourceManager {
	return c.resources
}

// Proxies 返回代理池
func (c *Core) Proxies() pkgif.ProxyManager {
	return c.proxies
}

// Tasks 返回任务执行器
func (c *Core) Tasks() *taskrunner.Runner {
	return c.tasks
}

// HTTP 返回 HTTP 会话
func (c *Core) HTTP() *httpsession.Session {
	return c.http
}

// Metrics 返回指标，禁用时为 nil
func (c *Core) Metrics() *metrics.Metrics {
	return c.metrics
}

// IntrospectAddr 返回诊断服务地址，未启用时为空
func (c *Core) IntrospectAddr() string {
	if c.introspect == nil {
		return ""
	}
	return c.introspect.Addr()
}

// Profile 按任务配置给出资源画像
func (c *Core) Profile() types.ResourceProfile {
	return c.resources.BuildProfile(c.config.Tasks.Workers, c.config.Tasks.EstimatedTaskMemoryMB)
}

// ============================================================================
//                              快捷方法
// ============================================================================

// Submit 提交任务
func (c *Core) Submit(ctx context.Context, spec taskrunner.Spec) (*taskrunner.Handle, error) {
	if err := c.checkRunning(); err != nil {
		return nil, err
	}
	return c.tasks.Submit(ctx, spec)
}

// Get 通过 HTTP 会话发起 GET 请求
func (c *Core) Get(ctx context.Context, service, path string, opts ...pkgif.RequestOption) (*http.Response, error) {
	if err := c.checkRunning(); err != nil {
		return nil, err
	}
	return c.http.Get(ctx, service, path, opts...)
}

// Post 通过 HTTP 会话发起 POST 请求
func (c *Core) Post(ctx context.Context, service, path string, opts ...pkgif.RequestOption) (*http.Response, error) {
	if err := c.checkRunning(); err != nil {
		return nil, err
	}
	return c.http.Post(ctx, service, path, opts...)
}

// GetJSON 发起 GET 请求并解码 JSON 响应
func (c *Core) GetJSON(ctx context.Context, service, path string, out any, opts ...pkgif.RequestOption) error {
	if err := c.checkRunning(); err != nil {
		return err
	}
	return c.http.GetJSON(ctx, service, path, out, opts...)
}

package resourcemgr

import (
	"sync"

	"github.com/warpmc/go-warpcore/config"
)

var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

// Default 返回进程级共享的资源管理器
//
// 首次调用时以默认配置懒加载创建，之后始终返回同一实例，没有销毁操作。
// 通过 fx 装配的应用应使用注入的实例。
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultManager == nil {
		defaultManager = New(config.DefaultResourceConfig())
	}
	return defaultManager
}

// Package logger 安装 warpcore 的进程级日志 handler
//
// 组件代码不直接使用本包，而是通过 pkg/lib/log 声明包级 logger：
//
//	var logger = log.Logger("core/proxymgr")
//
//	func foo() {
//	    logger.Info("代理已轮换", "domain", domain)
//	}
//
// 进程启动时调用 Install，之后所有 LazyLogger 都经过按组件过滤的 handler。
//
// 环境变量配置:
//
//	# 设置所有组件为 info，HTTP 会话为 debug
//	WARP_LOG_LEVEL=core/httpsession=debug,info
//
//	# 使用 JSON 格式输出
//	WARP_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"

	"github.com/warpmc/go-warpcore/pkg/lib/log"
)

var (
	installedMu sync.Mutex
	installed   *componentHandler
)

// Install 构建 handler 并设置为 slog 默认 logger
//
// 可以多次调用，后一次调用替换前一次的配置。
func Install(cfg Config) *slog.Logger {
	h := newHandler(cfg)

	installedMu.Lock()
	installed = h
	installedMu.Unlock()

	l := slog.New(h)
	log.SetDefault(l)
	return l
}

// Logger 获取指定组件的 Logger
//
// 需要先调用 Install，否则使用 slog 默认 handler。
func Logger(component string) *slog.Logger {
	return slog.Default().With(log.ComponentKey, component)
}

// SetLevel 动态设置组件的日志级别
//
// component 为空时设置默认级别。未调用 Install 时无效果。
//
// 示例:
//
//	logger.SetLevel("core/httpsession", slog.LevelDebug)
func SetLevel(component string, level slog.Level) {
	installedMu.Lock()
	h := installed
	installedMu.Unlock()
	if h != nil {
		h.table.set(component, level)
	}
}

// Discard 返回一个丢弃所有日志的 Logger
//
// 主要用于测试，避免日志输出干扰测试结果。
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}

// SetOutput 设置全局日志输出目标
//
// 已安装的 handler 会立即写入新的目标。
//
// 示例:
//
//	file, _ := os.OpenFile("warp.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
//	logger.SetOutput(file)
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}

// Package log 提供 warpcore 统一日志接口
//
// 基于 Go 标准库 log/slog 封装。组件在包级声明 logger：
//
//	var logger = log.Logger("core/taskrunner")
//	logger.Info("任务完成", "task", name, "attempt", attempt)
//
// 输出格式与级别由 internal/util/logger 在进程启动时安装。
package log

import (
	"context"
	"fmt"
	"log/slog"
)

// ComponentKey 组件属性名
const ComponentKey = "component"

// SetDefault 设置默认 logger
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler，
// 因此包级变量可以在 handler 安装之前声明。
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) current() *slog.Logger {
	return slog.Default().With(ComponentKey, l.component)
}

// Enabled 判断指定级别是否输出
func (l *LazyLogger) Enabled(level slog.Level) bool {
	return l.current().Enabled(context.Background(), level)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.current().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.current().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.current().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.current().Error(msg, args...)
}

// Printf 适配只接受 Printf 的第三方库（如 ants），输出为 Debug
func (l *LazyLogger) Printf(format string, args ...any) {
	if !l.Enabled(slog.LevelDebug) {
		return
	}
	l.current().Debug(fmt.Sprintf(format, args...))
}

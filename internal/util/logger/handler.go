package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/warpmc/go-warpcore/pkg/lib/log"
)

var (
	// globalOutput 全局日志输出目标，默认为 stderr
	globalOutput   io.Writer = os.Stderr
	globalOutputMu sync.RWMutex
)

// dynamicWriter 是一个动态查找 globalOutput 的 io.Writer
// 这样即使在 handler 安装后修改 globalOutput，也能生效
type dynamicWriter struct{}

func (w *dynamicWriter) Write(p []byte) (n int, err error) {
	globalOutputMu.RLock()
	output := globalOutput
	globalOutputMu.RUnlock()
	return output.Write(p)
}

// levelTable 在所有派生 handler 之间共享，支持运行时调整
type levelTable struct {
	mu  sync.RWMutex
	cfg Config
}

func (t *levelTable) levelFor(component string) slog.Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.LevelForComponent(component)
}

func (t *levelTable) set(component string, level slog.Level) {
	t.mu.Lock()
	defer t.mu.Unlock()
	levels := make(map[string]slog.Level, len(t.cfg.ComponentLevels)+1)
	for k, v := range t.cfg.ComponentLevels {
		levels[k] = v
	}
	if component == "" {
		t.cfg.DefaultLevel = level
	} else {
		levels[component] = level
	}
	t.cfg.ComponentLevels = levels
}

// componentHandler 按 component 属性过滤级别的 slog.Handler
//
// pkg/lib/log 的 LazyLogger 通过 With(component, ...) 附加组件名，
// WithAttrs 捕获该属性，Enabled 据此查表。
type componentHandler struct {
	table     *levelTable
	component string
	grouped   bool
	inner     slog.Handler
}

// newHandler 创建根 handler
func newHandler(cfg Config) *componentHandler {
	opts := &slog.HandlerOptions{
		// 级别过滤由 componentHandler 完成
		Level:     slog.LevelDebug,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			// 简化时间格式
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			// 简化级别名称
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelToString(lvl))
				}
			}
			return a
		},
	}

	output := &dynamicWriter{}

	var inner slog.Handler
	if cfg.Format == FormatJSON {
		inner = slog.NewJSONHandler(output, opts)
	} else {
		inner = slog.NewTextHandler(output, opts)
	}

	return &componentHandler{
		table: &levelTable{cfg: cfg},
		inner: inner,
	}
}

// Enabled 检查是否启用指定级别
func (h *componentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.table.levelFor(h.component)
}

// Handle 处理日志记录
func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

// WithAttrs 添加属性，顶层的 component 属性决定级别
func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	if !h.grouped {
		for _, a := range attrs {
			if a.Key == log.ComponentKey {
				component = a.Value.String()
			}
		}
	}
	return &componentHandler{
		table:     h.table,
		component: component,
		grouped:   h.grouped,
		inner:     h.inner.WithAttrs(attrs),
	}
}

// WithGroup 添加组
func (h *componentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &componentHandler{
		table:     h.table,
		component: h.component,
		grouped:   true,
		inner:     h.inner.WithGroup(name),
	}
}

// levelToString 将日志级别转换为小写字符串
func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelInfo:
		return "info"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

// discardHandler 丢弃所有日志的 Handler（用于测试）
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// DiscardHandler 返回一个丢弃所有日志的 Handler
func DiscardHandler() slog.Handler {
	return discardHandler{}
}

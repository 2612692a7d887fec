// Package logger 安装 warpcore 的进程级日志 handler
//
// 支持通过环境变量配置日志级别：
//   - WARP_LOG_LEVEL: 设置日志级别，支持按组件配置
//     格式: 组件=级别,组件=级别,默认级别
//     示例: core/httpsession=debug,core/proxymgr=warn,info
//   - WARP_LOG_FORMAT: 日志格式 (text 或 json)
//   - WARP_LOG_ADD_SOURCE: 是否输出源码位置
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/warpmc/go-warpcore/config"
)

// 环境变量名
const (
	EnvLevel     = "WARP_LOG_LEVEL"
	EnvFormat    = "WARP_LOG_FORMAT"
	EnvAddSource = "WARP_LOG_ADD_SOURCE"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// ComponentLevels 各组件的日志级别
	ComponentLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat

	// AddSource 是否添加源码位置
	AddSource bool
}

// DefaultConfig 返回默认日志配置（info，文本格式）
func DefaultConfig() Config {
	return Config{
		DefaultLevel:    slog.LevelInfo,
		ComponentLevels: make(map[string]slog.Level),
		Format:          FormatText,
	}
}

// LevelForComponent 获取指定组件的日志级别
//
// 先精确匹配，再逐级匹配父路径：core/httpsession 未配置时使用 core 的级别。
func (c Config) LevelForComponent(component string) slog.Level {
	for name := component; name != ""; {
		if level, ok := c.ComponentLevels[name]; ok {
			return level
		}
		i := strings.LastIndex(name, "/")
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return c.DefaultLevel
}

// FromLogConfig 由 config.LogConfig 构建日志配置，随后应用环境变量覆盖
func FromLogConfig(lc config.LogConfig) Config {
	cfg := DefaultConfig()
	cfg.AddSource = lc.AddSource
	ParseLevelSpec(&cfg, lc.Level)
	cfg.Format = parseFormat(lc.Format)
	applyEnv(&cfg)
	return cfg
}

// ConfigFromEnv 仅从环境变量解析配置
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if levelStr := os.Getenv(EnvLevel); levelStr != "" {
		ParseLevelSpec(cfg, levelStr)
	}
	if formatStr := os.Getenv(EnvFormat); formatStr != "" {
		cfg.Format = parseFormat(formatStr)
	}
	if addSourceStr := os.Getenv(EnvAddSource); addSourceStr != "" {
		cfg.AddSource = addSourceStr != "false" && addSourceStr != "0"
	}
}

// ParseLevelSpec 解析日志级别配置字符串
// 格式: component=level,component=level,defaultLevel
// 无法识别的级别名被忽略。
func ParseLevelSpec(cfg *Config, spec string) {
	if cfg.ComponentLevels == nil {
		cfg.ComponentLevels = make(map[string]slog.Level)
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if component, levelName, ok := strings.Cut(part, "="); ok {
			if level, ok := parseLevel(strings.TrimSpace(levelName)); ok {
				cfg.ComponentLevels[strings.TrimSpace(component)] = level
			}
			continue
		}
		if level, ok := parseLevel(part); ok {
			cfg.DefaultLevel = level
		}
	}
}

func parseFormat(s string) LogFormat {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// parseLevel 解析日志级别名称
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

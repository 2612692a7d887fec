package config

import (
	"fmt"
	"strings"
)

// LogConfig 日志配置
//
// Level 与 WARP_LOG_LEVEL 环境变量使用相同语法：
//
//	组件=级别,组件=级别,默认级别
//	core/httpsession=debug,core/proxymgr=warn,info
//
// 环境变量在安装日志时覆盖此处的值。
type LogConfig struct {
	// Level 日志级别规格
	Level string `json:"level"`

	// Format 输出格式: text 或 json
	Format string `json:"format"`

	// AddSource 是否输出源码位置
	AddSource bool `json:"add_source"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	for _, part := range strings.Split(c.Level, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := part
		if i := strings.Index(part, "="); i >= 0 {
			name = strings.TrimSpace(part[i+1:])
		}
		if !isLevelName(name) {
			return fmt.Errorf("unknown log level %q", name)
		}
	}
	return nil
}

// WithLevel 设置级别规格
func (c LogConfig) WithLevel(spec string) LogConfig {
	c.Level = spec
	return c
}

// WithFormat 设置输出格式
func (c LogConfig) WithFormat(format string) LogConfig {
	c.Format = format
	return c
}

func isLevelName(name string) bool {
	switch strings.ToLower(name) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

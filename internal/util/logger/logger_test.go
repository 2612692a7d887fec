package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
)

// captureInstall 安装 handler 并把输出重定向到 buffer，测试结束后恢复
func captureInstall(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	Install(cfg)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		slog.SetDefault(prev)
		installedMu.Lock()
		installed = nil
		installedMu.Unlock()
	})
	return buf
}

// ============================================================================
//                              级别解析
// ============================================================================

func TestParseLevelSpec(t *testing.T) {
	cfg := DefaultConfig()
	ParseLevelSpec(&cfg, "core/httpsession=debug, core=warn ,error,bogus=loud")

	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForComponent("core/httpsession"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForComponent("core/proxymgr"), "应继承父路径级别")
	assert.Equal(t, slog.LevelError, cfg.LevelForComponent("cmd"))
	_, ok := cfg.ComponentLevels["bogus"]
	assert.False(t, ok)
}

func TestFromLogConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLevel, "core/taskrunner=debug")
	t.Setenv(EnvFormat, "json")

	cfg := FromLogConfig(config.LogConfig{Level: "warn", Format: "text"})
	assert.Equal(t, slog.LevelWarn, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForComponent("core/taskrunner"))
	assert.Equal(t, FormatJSON, cfg.Format)
}

// ============================================================================
//                              Handler
// ============================================================================

func TestInstall_FiltersByComponent(t *testing.T) {
	cfg := DefaultConfig()
	ParseLevelSpec(&cfg, "core/proxymgr=debug,info")
	buf := captureInstall(t, cfg)

	log.Logger("core/proxymgr").Debug("代理调试", "k", "v")
	log.Logger("core/httpsession").Debug("会话调试")
	log.Logger("core/httpsession").Info("会话信息")

	out := buf.String()
	assert.Contains(t, out, "代理调试")
	assert.Contains(t, out, "component=core/proxymgr")
	assert.NotContains(t, out, "会话调试")
	assert.Contains(t, out, "会话信息")
}

func TestInstall_JSONFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = FormatJSON
	buf := captureInstall(t, cfg)

	Logger("cmd").Info("started", "workers", 4)

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "started", rec["msg"])
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "cmd", rec["component"])
	assert.Contains(t, rec, "ts")
}

func TestSetLevel_Dynamic(t *testing.T) {
	buf := captureInstall(t, DefaultConfig())
	l := log.Logger("core/resourcemgr")

	l.Debug("before")
	SetLevel("core/resourcemgr", slog.LevelDebug)
	l.Debug("after")

	out := buf.String()
	assert.NotContains(t, out, "before")
	assert.Contains(t, out, "after")
}

func TestLazyLogger_Printf(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLevel = slog.LevelDebug
	buf := captureInstall(t, cfg)

	log.Logger("core/taskrunner").Printf("pool %s: %d", "resized", 3)
	assert.Contains(t, buf.String(), "pool resized: 3")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}

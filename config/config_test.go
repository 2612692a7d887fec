package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// ============================================================================
//                              默认配置
// ============================================================================

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	// 验证默认配置有效
	assert.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Services)

	t.Log("✅ NewConfig 测试通过")
}

// TestResourceConfig 测试资源管理配置
func TestResourceConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultResourceConfig()
		assert.Equal(t, 0.15, cfg.MemoryReserveRatio)
		assert.Equal(t, 500*time.Millisecond, cfg.PollInterval.Duration())
		assert.Equal(t, 1, cfg.MinWorkers)
		assert.Equal(t, 1.2, cfg.MaxLoadPerCPU)
		assert.Equal(t, 256.0, cfg.MinMemPerWorkerMB)
	})

	t.Run("Normalized", func(t *testing.T) {
		cfg := DefaultResourceConfig().
			WithMemoryReserveRatio(2).
			WithPollInterval(time.Millisecond).
			WithMaxLoadPerCPU(0.01).
			WithMinWorkers(0)
		n := cfg.Normalized()
		assert.Equal(t, MaxMemoryReserveRatio, n.MemoryReserveRatio)
		assert.Equal(t, MinPollInterval, n.PollInterval.Duration())
		assert.Equal(t, MinMaxLoadPerCPU, n.MaxLoadPerCPU)
		assert.Equal(t, 1, n.MinWorkers)
	})

	t.Run("Validate_InvalidMinWorkers", func(t *testing.T) {
		cfg := DefaultResourceConfig().WithMinWorkers(0)
		assert.Error(t, cfg.Validate())
	})
}

// TestTaskConfig 测试任务执行器配置
func TestTaskConfig(t *testing.T) {
	cfg := DefaultTaskConfig()
	assert.Equal(t, HeadroomProceed, cfg.HeadroomPolicy)
	assert.False(t, cfg.RejectOnHeadroomTimeout())
	assert.NoError(t, cfg.Validate())

	assert.True(t, cfg.WithHeadroomPolicy(HeadroomReject).RejectOnHeadroomTimeout())
	assert.Error(t, cfg.WithHeadroomPolicy("panic").Validate())
	assert.Error(t, cfg.WithWorkers(0).Validate())
}

// TestProxyConfig 测试代理配置
func TestProxyConfig(t *testing.T) {
	cfg := DefaultProxyConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, PoolFormatHostPortUserPass, cfg.Pool.Format)
	assert.Equal(t, 600*time.Second, cfg.StickinessFor("api.themoviedb.org"))

	cfg = cfg.WithDomainStickiness("api.trakt.tv", 30*time.Second)
	assert.Equal(t, 30*time.Second, cfg.StickinessFor("api.trakt.tv"))
	assert.Equal(t, 600*time.Second, cfg.StickinessFor("api.themoviedb.org"))

	cfg.Rotation.MaxFailuresBeforeRotate = 0
	assert.Error(t, cfg.Validate())
}

// TestHTTPConfig 测试 HTTP 配置
func TestHTTPConfig(t *testing.T) {
	cfg := DefaultHTTPConfig()
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, 300*time.Millisecond, cfg.Retry.BaseBackoff.Duration())
	assert.Equal(t, 6*time.Second, cfg.Retry.MaxBackoff.Duration())
	assert.Equal(t, 30*time.Second, cfg.RetryAfterCap.Duration())
	assert.NoError(t, cfg.Validate())

	bad := cfg.WithRetry(3, time.Second, time.Millisecond, 0)
	assert.Error(t, bad.Validate())
}

// ============================================================================
//                              服务配置
// ============================================================================

func TestServiceConfig_AuthPath(t *testing.T) {
	svc := ServiceConfig{BaseURL: "https://api.trakt.tv"}
	assert.True(t, svc.IsAuthPath("oauth/token"))
	assert.True(t, svc.IsAuthPath("/oauth/device/code"))
	assert.False(t, svc.IsAuthPath("sync/history"))

	svc.AuthPathPrefixes = []string{"/auth/"}
	assert.True(t, svc.IsAuthPath("auth/refresh"))
	assert.False(t, svc.IsAuthPath("oauth/token"))
}

func TestServiceConfig_RespectRetryAfter(t *testing.T) {
	svc := ServiceConfig{BaseURL: "https://api.themoviedb.org/3"}
	assert.True(t, svc.RateLimits.ShouldRespectRetryAfter())
	assert.False(t, svc.WithRespectRetryAfter(false).RateLimits.ShouldRespectRetryAfter())
	// 原值不受影响
	assert.True(t, svc.RateLimits.ShouldRespectRetryAfter())
}

func TestMergeServices(t *testing.T) {
	base := map[string]ServiceConfig{
		"tmdb": {
			BaseURL:        "https://api.themoviedb.org/3",
			DefaultHeaders: map[string]string{"Accept": "application/json"},
		},
	}
	over := map[string]ServiceConfig{
		"tmdb":  {DefaultHeaders: map[string]string{"X-Extra": "1"}},
		"trakt": {BaseURL: "https://api.trakt.tv"},
	}

	merged := MergeServices(base, over)
	require.Len(t, merged, 2)
	assert.Equal(t, "https://api.themoviedb.org/3", merged["tmdb"].BaseURL)
	assert.Equal(t, "application/json", merged["tmdb"].DefaultHeaders["Accept"])
	assert.Equal(t, "1", merged["tmdb"].DefaultHeaders["X-Extra"])
	assert.Len(t, base["tmdb"].DefaultHeaders, 1, "基础映射不应被修改")
}

// ============================================================================
//                              验证
// ============================================================================

func TestConfig_Validate_AggregatesErrors(t *testing.T) {
	cfg := NewConfig()
	cfg.Tasks.Workers = 0
	cfg.HTTP.Timeout = 0
	cfg.WithService("broken", ServiceConfig{BaseURL: "ftp://example.com"})

	err := cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 3)
	assert.Contains(t, err.Error(), "tasks:")
	assert.Contains(t, err.Error(), "http:")
	assert.Contains(t, err.Error(), "services.broken:")
}

func TestLogConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultLogConfig().WithLevel("core/proxymgr=debug,warn").Validate())
	assert.Error(t, DefaultLogConfig().WithLevel("core/proxymgr=loud").Validate())
	assert.Error(t, DefaultLogConfig().WithFormat("xml").Validate())
}

// ============================================================================
//                              Duration
// ============================================================================

func TestDuration_UnmarshalJSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
		C Duration `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1m30s","b":20,"c":0.5}`), &v))
	assert.Equal(t, 90*time.Second, v.A.Duration())
	assert.Equal(t, 20*time.Second, v.B.Duration())
	assert.Equal(t, 500*time.Millisecond, v.C.Duration())

	assert.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))

	out, err := json.Marshal(Duration(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(out))
}

// ============================================================================
//                              加载
// ============================================================================

func TestLoad_YAML(t *testing.T) {
	t.Setenv("WARP_TEST_TMDB_KEY", "secret-key")
	t.Setenv("WARP_TEST_TRAKT_ID", "client-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "warp.yaml")
	content := `
tasks:
  workers: 8
  headroom_policy: reject
proxy:
  enabled: true
  pool:
    file: ${WARP_TEST_MISSING}/proxies.txt
  rotation:
    stickiness: 60
http:
  retry:
    max_attempts: 2
services:
  tmdb:
    base_url: https://api.themoviedb.org/3
    api_key: ${WARP_TEST_TMDB_KEY}
    endpoints:
      movie_details: movie/{}
  trakt:
    base_url: https://api.trakt.tv
    default_headers:
      trakt-api-key: ${WARP_TEST_TRAKT_ID}
      trakt-api-version: "2"
    rate_limits:
      respect_retry_after: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Tasks.Workers)
	assert.True(t, cfg.Tasks.RejectOnHeadroomTimeout())
	// 未出现的字段保留默认值
	assert.Equal(t, 256.0, cfg.Tasks.EstimatedTaskMemoryMB)
	assert.Equal(t, 300*time.Millisecond, cfg.HTTP.Retry.BaseBackoff.Duration())

	assert.True(t, cfg.Proxy.Enabled)
	assert.Equal(t, "/proxies.txt", cfg.Proxy.Pool.File)
	assert.Equal(t, time.Minute, cfg.Proxy.Rotation.Stickiness.Duration())
	assert.Equal(t, 2, cfg.HTTP.Retry.MaxAttempts)

	tmdb, ok := cfg.Service("tmdb")
	require.True(t, ok)
	assert.Equal(t, "secret-key", tmdb.APIKey)
	assert.Equal(t, "movie/{}", tmdb.Endpoints["movie_details"])

	trakt, ok := cfg.Service("trakt")
	require.True(t, ok)
	assert.Equal(t, "client-123", trakt.DefaultHeaders["trakt-api-key"])
	assert.False(t, trakt.RateLimits.ShouldRespectRetryAfter())
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"resource":{"memory_reserve_ratio":0.3}}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Resource.MemoryReserveRatio)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	tomlPath := filepath.Join(dir, "warp.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("x = 1"), 0o600))
	_, err = Load(tomlPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"tasks":{"workers":0}}`), 0o600))
	_, err = Load(invalid)
	assert.Error(t, err)
}

func TestExpandEnvString(t *testing.T) {
	t.Setenv("WARP_TEST_HOST", "proxy.local")
	assert.Equal(t, "http://proxy.local:8080", ExpandEnvString("http://${WARP_TEST_HOST}:8080"))
	assert.Equal(t, "plain", ExpandEnvString("plain"))
	assert.Equal(t, "$HOME", ExpandEnvString("$HOME"))
}

package proxymgr

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/warpmc/go-warpcore/config"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/types"
)

const (
	proxyA = "http://alice:pw@10.0.0.1:8080"
	proxyB = "http://bob:pw@10.0.0.2:8080"
	domain = "api.themoviedb.org"
)

func enabledConfig() config.ProxyConfig {
	return config.DefaultProxyConfig().WithEnabled(true)
}

// newTestManager 两个代理 + mock 时钟
func newTestManager(t *testing.T) (*Manager, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(enabledConfig(), WithClock(mock), WithPool(proxyA, proxyB)), mock
}

func other(key string) string {
	if key == proxyA {
		return proxyB
	}
	return proxyA
}

func scoreOf(m *Manager, key string) float64 {
	for _, st := range m.Stats() {
		if st.URL == types.RedactProxyURL(key) {
			return st.Score
		}
	}
	return math.NaN()
}

// ============================================================================
//                              启用
// ============================================================================

func TestEnabledForDomain(t *testing.T) {
	t.Run("禁用", func(t *testing.T) {
		m := New(config.DefaultProxyConfig(), WithPool(proxyA))
		assert.False(t, m.EnabledForDomain(domain))
		_, ok := m.Choose(domain)
		assert.False(t, ok)
		assert.Equal(t, 0, m.Len(), "禁用时不加载代理池")
	})

	t.Run("空池", func(t *testing.T) {
		m := New(enabledConfig(), WithPool())
		assert.False(t, m.EnabledForDomain(domain))
		_, ok := m.Choose(domain)
		assert.False(t, ok)
	})

	t.Run("文件缺失", func(t *testing.T) {
		cfg := enabledConfig().WithPoolFile(filepath.Join(t.TempDir(), "missing.txt"), "")
		m := New(cfg)
		assert.Equal(t, 0, m.Len())
		assert.False(t, m.EnabledForDomain(domain))
	})

	t.Run("启用", func(t *testing.T) {
		m, _ := newTestManager(t)
		assert.True(t, m.EnabledForDomain(domain))
		assert.Equal(t, 2, m.Len())
	})
}

// ============================================================================
//                              粘性
// ============================================================================

// TestChoose_StickinessStable 过期前同一域名总是返回同一代理
func TestChoose_StickinessStable(t *testing.T) {
	m, mock := newTestManager(t)

	first, ok := m.Choose(domain)
	require.True(t, ok)
	assert.Equal(t, first.HTTP, first.HTTPS)

	// 另一个代理分数更高也不影响已有绑定
	for i := 0; i < 5; i++ {
		m.MarkGood(types.NewProxyPair(other(first.Key())))
	}
	for i := 0; i < 10; i++ {
		mock.Add(time.Minute - time.Second)
		got, ok := m.Choose(domain)
		require.True(t, ok)
		assert.Equal(t, first, got)
	}

	// 过期后重新排序，高分代理胜出
	mock.Add(time.Minute)
	got, ok := m.Choose(domain)
	require.True(t, ok)
	assert.Equal(t, other(first.Key()), got.Key())
}

func TestChoose_DomainOverride(t *testing.T) {
	mock := clock.NewMock()
	cfg := enabledConfig().WithDomainStickiness("api.trakt.tv", 10*time.Second)
	m := New(cfg, WithClock(mock), WithPool(proxyA, proxyB))

	first, _ := m.Choose("api.trakt.tv")
	m.MarkGood(types.NewProxyPair(other(first.Key())))

	mock.Add(11 * time.Second)
	got, _ := m.Choose("api.trakt.tv")
	assert.Equal(t, other(first.Key()), got.Key())
}

// TestMarkBad_Rotation 两个代理，粘性代理连续失败 2 次后切换到另一个
func TestMarkBad_Rotation(t *testing.T) {
	m, _ := newTestManager(t)

	sticky, ok := m.Choose(domain)
	require.True(t, ok)

	m.MarkBad(sticky)
	again, _ := m.Choose(domain)
	assert.Equal(t, sticky, again, "未达到阈值不轮换")

	m.MarkBad(sticky)
	next, ok := m.Choose(domain)
	require.True(t, ok)
	assert.Equal(t, other(sticky.Key()), next.Key())
}

func TestMarkBad_ConsecutiveResetByGood(t *testing.T) {
	m, _ := newTestManager(t)

	sticky, _ := m.Choose(domain)
	m.MarkBad(sticky)
	m.MarkGood(sticky)
	m.MarkBad(sticky)

	got, _ := m.Choose(domain)
	assert.Equal(t, sticky, got, "成功会重置连续失败计数")
}

func TestMarkBad_ClearsAllDomains(t *testing.T) {
	mock := clock.NewMock()
	m := New(enabledConfig(), WithClock(mock), WithPool(proxyA))

	a, _ := m.Choose("a.example")
	b, _ := m.Choose("b.example")
	require.Equal(t, a, b)

	m.MarkBad(a)
	m.MarkBad(a)
	for _, st := range m.Stats() {
		assert.Empty(t, st.StickyDomains)
	}

	// 只有一个代理时仍然返回它
	got, ok := m.Choose("a.example")
	assert.True(t, ok)
	assert.Equal(t, proxyA, got.Key())
}

func TestMark_UnknownOrEmpty(t *testing.T) {
	m, _ := newTestManager(t)
	assert.NotPanics(t, func() {
		m.MarkGood(types.ProxyPair{})
		m.MarkBad(types.ProxyPair{})
		m.MarkGood(types.NewProxyPair("http://unknown:1"))
	})
	for _, st := range m.Stats() {
		assert.Zero(t, st.Successes)
		assert.Zero(t, st.Failures)
	}
}

// ============================================================================
//                              评分与衰减
// ============================================================================

func TestScoreAdjustments(t *testing.T) {
	m, _ := newTestManager(t)
	a := types.NewProxyPair(proxyA)

	m.MarkGood(a)
	assert.InDelta(t, 1.0, scoreOf(m, proxyA), 1e-9)
	m.MarkBad(a)
	assert.InDelta(t, -0.2, scoreOf(m, proxyA), 1e-9)

	stats := m.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].Successes)
	assert.Equal(t, 1, stats[0].Failures)
	assert.False(t, stats[0].LastGood.IsZero())
	assert.NotContains(t, stats[0].URL, ":pw@", "凭据必须脱敏")
}

func TestDecay_HalfLife(t *testing.T) {
	m, mock := newTestManager(t)
	m.MarkGood(types.NewProxyPair(proxyA))

	mock.Add(900 * time.Second)
	assert.InDelta(t, 0.5, scoreOf(m, proxyA), 1e-9)

	mock.Add(900 * time.Second)
	assert.InDelta(t, 0.25, scoreOf(m, proxyA), 1e-9)
}

// TestDecay_Monotonic 无新记录时分数绝对值不增，且与读取次数无关
func TestDecay_Monotonic(t *testing.T) {
	for _, mark := range []string{"good", "bad"} {
		t.Run(mark, func(t *testing.T) {
			m, mock := newTestManager(t)
			p := types.NewProxyPair(proxyA)
			for i := 0; i < 3; i++ {
				if mark == "good" {
					m.MarkGood(p)
				} else {
					m.MarkBad(p)
				}
			}

			prev := math.Abs(scoreOf(m, proxyA))
			for i := 0; i < 50; i++ {
				mock.Add(37 * time.Second)
				// 多次排序不应额外衰减
				m.Choose("x.example")
				m.Choose("y.example")
				cur := math.Abs(scoreOf(m, proxyA))
				assert.LessOrEqual(t, cur, prev)
				prev = cur
			}

			// 确定性：与直接计算一致
			initial := 3.0
			if mark == "bad" {
				initial = -3.6
			}
			elapsed := (50 * 37 * time.Second).Seconds()
			want := math.Abs(initial * math.Pow(0.5, elapsed/900))
			assert.InDelta(t, want, prev, 1e-9)
		})
	}
}

func TestChoose_PrefersFewerFailures(t *testing.T) {
	m, _ := newTestManager(t)
	// A: 1 成功 1 失败（分数 -0.2），B: 无记录（分数 0）
	m.MarkGood(types.NewProxyPair(proxyA))
	m.MarkBad(types.NewProxyPair(proxyA))

	got, _ := m.Choose("fresh.example")
	assert.Equal(t, proxyB, got.Key())
}

// TestChoose_TiebreakSpreads 同分代理应都有机会被选中
func TestChoose_TiebreakSpreads(t *testing.T) {
	m, _ := newTestManager(t)
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		p, ok := m.Choose("d" + strings.Repeat("x", i))
		require.True(t, ok)
		seen[p.Key()]++
	}
	assert.Len(t, seen, 2)
}

func TestConcurrentAccess(t *testing.T) {
	m, _ := newTestManager(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p, ok := m.Choose(domain)
				if !ok {
					continue
				}
				if (i+j)%3 == 0 {
					m.MarkBad(p)
				} else {
					m.MarkGood(p)
				}
				_ = m.Stats()
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for _, st := range m.Stats() {
		total += st.Successes + st.Failures
	}
	assert.Equal(t, 1600, total)
}

// ============================================================================
//                              文件加载
// ============================================================================

func TestNew_LoadsPoolFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "10.0.0.1:8080:alice:pw\n\n   \n10.0.0.2:8080:bob:p:w:x\nbad:line\n10.0.0.1:8080:alice:pw\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m := New(enabledConfig().WithPoolFile(path, ""))
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.EnabledForDomain(domain))
}

// ============================================================================
//                              Fx 模块
// ============================================================================

func TestModule_Provides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	require.NoError(t, os.WriteFile(path, []byte("10.0.0.1:8080\n"), 0o600))

	cfg := config.NewConfig()
	cfg.Proxy = cfg.Proxy.WithEnabled(true).WithPoolFile(path, config.PoolFormatHostPort)

	var pm pkgif.ProxyManager
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&pm),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, pm)
	p, ok := pm.Choose(domain)
	require.True(t, ok)
	assert.Equal(t, "http://10.0.0.1:8080", p.Key())
}

package proxymgr

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
	"github.com/warpmc/go-warpcore/pkg/types"
)

var logger = log.Logger("core/proxymgr")

// 评分调整
const (
	goodDelta = 1.0
	badDelta  = -1.2
)

var _ pkgif.ProxyManager = (*Manager)(nil)

// proxyState 单个代理的健康状态
//
// score 是 lastUsed 时刻的分数，当前分数由 decayedScore 计算，
// 因此衰减只取决于 (lastUsed, now, halfLife)。
type proxyState struct {
	url                 string
	successes           int
	failures            int
	consecutiveFailures int
	score               float64
	lastUsed            time.Time
	lastGood            time.Time
}

// stickiness 域名到代理的临时绑定
type stickiness struct {
	proxyKey  string
	expiresAt time.Time
}

// Manager 代理池管理器
//
// 所有状态由单个互斥锁保护。
type Manager struct {
	cfg     config.ProxyConfig
	clock   clock.Clock
	metrics *metrics.Metrics

	mu      sync.Mutex
	proxies map[string]*proxyState
	order   []string
	sticky  map[string]stickiness
}

// Option 代理管理器选项
type Option func(*options)

type options struct {
	clock   clock.Clock
	metrics *metrics.Metrics
	pool    []string
	hasPool bool
}

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPool 直接指定代理 URL，不读取代理池文件
func WithPool(urls ...string) Option {
	return func(o *options) {
		o.pool = append([]string(nil), urls...)
		o.hasPool = true
	}
}

// New 创建代理管理器
//
// 仅在启用时读取代理池文件，且只读取一次。文件缺失或读取失败时代理池为空，
// 此时 EnabledForDomain 始终返回 false。
func New(cfg config.ProxyConfig, opts ...Option) *Manager {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		cfg:     cfg,
		clock:   o.clock,
		metrics: o.metrics,
		proxies: make(map[string]*proxyState),
		sticky:  make(map[string]stickiness),
	}

	if !cfg.Enabled {
		return m
	}

	urls := o.pool
	if !o.hasPool {
		var err error
		urls, err = LoadPoolFile(cfg.Pool.File, cfg.Pool.Format)
		if err != nil {
			logger.Warn("读取代理池失败，代理已停用", "file", cfg.Pool.File, "err", err)
			urls = nil
		}
	}
	for _, u := range urls {
		if _, ok := m.proxies[u]; ok {
			continue
		}
		m.proxies[u] = &proxyState{url: u}
		m.order = append(m.order, u)
	}
	logger.Info("代理池已加载", "count", len(m.order))
	return m
}

// Len 返回代理数量
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// EnabledForDomain 全局启用且代理池非空时返回 true
//
// 目前与域名无关，保留参数以便按域名开关。
func (m *Manager) EnabledForDomain(_ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabledLocked()
}

func (m *Manager) enabledLocked() bool {
	return m.cfg.Enabled && len(m.proxies) > 0
}

// Choose 为域名选择代理
//
// 未过期的粘性分配直接返回，不重新排序；否则按衰减后分数降序、
// 失败次数升序、随机数打破平局选出最佳代理，并建立新的粘性分配。
func (m *Manager) Choose(domain string) (types.ProxyPair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabledLocked() {
		return types.ProxyPair{}, false
	}

	now := m.clock.Now()
	if st, ok := m.sticky[domain]; ok {
		if st.expiresAt.After(now) {
			if _, exists := m.proxies[st.proxyKey]; exists {
				return types.NewProxyPair(st.proxyKey), true
			}
		}
		delete(m.sticky, domain)
	}

	best := m.bestLocked(now)
	if best == nil {
		return types.ProxyPair{}, false
	}

	m.sticky[domain] = stickiness{
		proxyKey:  best.url,
		expiresAt: now.Add(m.cfg.StickinessFor(domain)),
	}
	logger.Debug("域名绑定代理", "domain", domain, "proxy", types.RedactProxyURL(best.url))
	return types.NewProxyPair(best.url), true
}

type ranked struct {
	st       *proxyState
	score    float64
	tiebreak float64
}

func (m *Manager) bestLocked(now time.Time) *proxyState {
	if len(m.order) == 0 {
		return nil
	}
	list := make([]ranked, 0, len(m.order))
	for _, key := range m.order {
		st := m.proxies[key]
		list = append(list, ranked{
			st:       st,
			score:    m.decayedScore(st, now),
			tiebreak: rand.Float64(),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.st.failures != b.st.failures {
			return a.st.failures < b.st.failures
		}
		return a.tiebreak > b.tiebreak
	})
	return list[0].st
}

// decayedScore 返回 now 时刻的分数
//
// score × 0.5^((now - lastUsed) / halfLife)，未使用过的代理不衰减。
func (m *Manager) decayedScore(st *proxyState, now time.Time) float64 {
	halfLife := m.cfg.Rotation.DecayHalfLife.Duration()
	if halfLife <= 0 || st.lastUsed.IsZero() || st.score == 0 {
		return st.score
	}
	elapsed := now.Sub(st.lastUsed)
	if elapsed <= 0 {
		return st.score
	}
	return st.score * math.Pow(0.5, elapsed.Seconds()/halfLife.Seconds())
}

// MarkGood 记录一次成功
func (m *Manager) MarkGood(pair types.ProxyPair) {
	key := pair.Key()
	if key == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.proxies[key]
	if !ok {
		return
	}
	now := m.clock.Now()
	st.score = m.decayedScore(st, now) + goodDelta
	st.successes++
	st.consecutiveFailures = 0
	st.lastUsed = now
	st.lastGood = now
	m.metrics.ProxyMarked(true)
}

// MarkBad 记录一次失败
//
// 连续失败达到 MaxFailuresBeforeRotate 时，删除所有指向该代理的粘性分配。
func (m *Manager) MarkBad(pair types.ProxyPair) {
	key := pair.Key()
	if key == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.proxies[key]
	if !ok {
		return
	}
	now := m.clock.Now()
	st.score = m.decayedScore(st, now) + badDelta
	st.failures++
	st.consecutiveFailures++
	st.lastUsed = now
	m.metrics.ProxyMarked(false)

	if st.consecutiveFailures < m.cfg.Rotation.MaxFailuresBeforeRotate {
		return
	}
	for domain, sticky := range m.sticky {
		if sticky.proxyKey != key {
			continue
		}
		delete(m.sticky, domain)
		m.metrics.ProxyRotated()
		logger.Info("粘性代理已轮换",
			"domain", domain,
			"proxy", types.RedactProxyURL(key),
			"consecutive_failures", st.consecutiveFailures)
	}
}

// Stats 返回代理状态视图，按加载顺序排列
func (m *Manager) Stats() []types.ProxyStat {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	domains := make(map[string][]string)
	for domain, st := range m.sticky {
		if st.expiresAt.After(now) {
			domains[st.proxyKey] = append(domains[st.proxyKey], domain)
		}
	}

	out := make([]types.ProxyStat, 0, len(m.order))
	for _, key := range m.order {
		st := m.proxies[key]
		sticky := domains[key]
		sort.Strings(sticky)
		out = append(out, types.ProxyStat{
			URL:                 types.RedactProxyURL(st.url),
			Successes:           st.successes,
			Failures:            st.failures,
			ConsecutiveFailures: st.consecutiveFailures,
			Score:               m.decayedScore(st, now),
			LastUsed:            st.lastUsed,
			LastGood:            st.lastGood,
			StickyDomains:       sticky,
		})
	}
	return out
}

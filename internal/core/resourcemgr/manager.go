package resourcemgr

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
	"github.com/warpmc/go-warpcore/pkg/types"
)

var logger = log.Logger("core/resourcemgr")

// defaultContext 未指定场景时的日志标签
const defaultContext = "tasks"

var _ pkgif.ResourceManager = (*Manager)(nil)

// Manager 资源管理器实现
//
// 快照缓存由单个互斥锁保护；派生计算都基于传入或新采集的快照，
// 自身不持有其他可变状态。
type Manager struct {
	cfg     config.ResourceConfig
	sampler Sampler
	clock   clock.Clock
	metrics *metrics.Metrics

	mu       sync.Mutex
	snapshot *types.SystemSnapshot
}

// Option 资源管理器选项
type Option func(*Manager)

// WithSampler 设置采样器
func WithSampler(s Sampler) Option {
	return func(m *Manager) {
		if s != nil {
			m.sampler = s
		}
	}
}

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// New 创建资源管理器
//
// 配置会被截断到合法范围（见 config.ResourceConfig.Normalized）。
func New(cfg config.ResourceConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg.Normalized(),
		sampler: NewSystemSampler(),
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config 返回生效的配置
func (m *Manager) Config() config.ResourceConfig {
	return m.cfg
}

// Snapshot 返回系统快照
//
// 首次调用总会采集；refresh=false 时复用缓存。
func (m *Manager) Snapshot(refresh bool) types.SystemSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snapshot == nil || refresh {
		snap := m.measure()
		m.snapshot = &snap
	}
	return *m.snapshot
}

// measure 采集一次读数，失败项退化为默认值
func (m *Manager) measure() types.SystemSnapshot {
	var snap types.SystemSnapshot

	if vm, err := m.sampler.VirtualMemory(); err != nil {
		logger.Warn("读取内存失败", "err", err)
	} else {
		snap.TotalRAMMB = float64(vm.Total) / bytesPerMB
		snap.AvailableRAMMB = float64(vm.Available) / bytesPerMB
		snap.UsedRAMMB = snap.TotalRAMMB - snap.AvailableRAMMB
		snap.PercentUsed = vm.UsedPercent
	}

	snap.CPUCount = 1
	if n, err := m.sampler.CPUCount(); err != nil {
		logger.Debug("读取 CPU 数失败", "err", err)
	} else if n > 0 {
		snap.CPUCount = n
	}

	if l, err := m.sampler.LoadAverage1m(); err == nil {
		snap.LoadAverage1m = &l
	}

	m.metrics.SetMemory(snap.AvailableRAMMB, m.SafeAvailableMemoryMB(snap))
	return snap
}

// MemoryReserveMB 返回保留内存
func (m *Manager) MemoryReserveMB(snap types.SystemSnapshot) float64 {
	return snap.TotalRAMMB * m.cfg.MemoryReserveRatio
}

// SafeAvailableMemoryMB 返回扣除保留后的可用内存，最小为 0
func (m *Manager) SafeAvailableMemoryMB(snap types.SystemSnapshot) float64 {
	return math.Max(0, snap.AvailableRAMMB-m.MemoryReserveMB(snap))
}

// RecommendWorkerCount 返回内存与 CPU 双重约束下的安全 worker 数
//
// minMemPerWorkerMB <= 0 时不做内存约束。结果不低于 MinWorkers。
func (m *Manager) RecommendWorkerCount(requested int, minMemPerWorkerMB float64, context string) int {
	return m.recommend(m.Snapshot(true), requested, minMemPerWorkerMB, context)
}

func (m *Manager) recommend(snap types.SystemSnapshot, requested int, minMemPerWorkerMB float64, context string) int {
	minWorkers := m.cfg.MinWorkers
	safeAvailable := m.SafeAvailableMemoryMB(snap)

	memBound := requested
	if minMemPerWorkerMB > 0 {
		memBound = max(minWorkers, int(math.Floor(safeAvailable/minMemPerWorkerMB)))
	}

	cpuCount := max(snap.CPUCount, 1)
	cpuBound := max(minWorkers, cpuCount)
	if snap.LoadAverage1m != nil {
		loadRatio := *snap.LoadAverage1m / float64(cpuCount)
		if loadRatio > m.cfg.MaxLoadPerCPU {
			cpuBound = max(minWorkers, int(float64(cpuBound)/(loadRatio/m.cfg.MaxLoadPerCPU)))
		}
	}

	recommended := max(minWorkers, min(requested, memBound, cpuBound))
	if recommended < requested {
		if context == "" {
			context = defaultContext
		}
		logger.Info("资源受限，调整工作线程数",
			"context", context,
			"requested", requested,
			"recommended", recommended,
			"safe_available_mb", math.Round(safeAvailable*100)/100,
			"cpu_bound", cpuBound)
	}
	m.metrics.SetRecommendedWorkers(recommended)
	return recommended
}

// WaitForHeadroom 阻塞直到安全可用内存不低于 requiredMB 或超时
//
// 每个轮询间隔重新采样。超时返回 false，不是错误。
func (m *Manager) WaitForHeadroom(requiredMB float64, context string, timeout time.Duration) bool {
	start := m.clock.Now()
	deadline := start.Add(timeout)
	for {
		snap := m.Snapshot(true)
		safeAvailable := m.SafeAvailableMemoryMB(snap)
		if safeAvailable >= requiredMB {
			m.metrics.ObserveHeadroomWait(m.clock.Since(start), true)
			return true
		}

		remaining := deadline.Sub(m.clock.Now())
		if remaining <= 0 {
			logger.Warn("等待内存余量超时",
				"context", context,
				"required_mb", requiredMB,
				"available_mb", math.Round(safeAvailable*100)/100)
			m.metrics.ObserveHeadroomWait(m.clock.Since(start), false)
			return false
		}

		logger.Debug("等待内存余量",
			"context", context,
			"required_mb", requiredMB,
			"available_mb", math.Round(safeAvailable*100)/100)
		// 最后一次休眠不越过截止时间
		m.clock.Sleep(min(m.cfg.PollInterval.Duration(), remaining))
	}
}

// BuildProfile 基于一次新快照给出资源建议
func (m *Manager) BuildProfile(requestedWorkers int, minMemPerWorkerMB float64) types.ResourceProfile {
	snap := m.Snapshot(true)
	return types.ResourceProfile{
		Snapshot:               snap,
		MemoryReserveMB:        m.MemoryReserveMB(snap),
		RecommendedTaskWorkers: m.recommend(snap, requestedWorkers, minMemPerWorkerMB, ""),
	}
}

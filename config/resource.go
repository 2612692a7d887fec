package config

import (
	"errors"
	"time"
)

// 资源管理的边界值
const (
	// MaxMemoryReserveRatio 内存保留比例上限
	MaxMemoryReserveRatio = 0.9

	// MinPollInterval 余量轮询间隔下限
	MinPollInterval = 10 * time.Millisecond

	// MinMaxLoadPerCPU 每核负载阈值下限
	MinMaxLoadPerCPU = 0.1
)

// ResourceConfig 资源管理配置
//
// 控制主机内存与 CPU 的评估方式：
//   - 为操作系统和其他进程保留的内存比例
//   - 等待内存余量时的轮询间隔
//   - 工作线程数推荐的下限和 CPU 负载阈值
type ResourceConfig struct {
	// MemoryReserveRatio 保留的总内存比例，超出 [0, 0.9] 时会被截断
	MemoryReserveRatio float64 `json:"memory_reserve_ratio"`

	// PollInterval 等待余量时的轮询间隔，最小 10ms
	PollInterval Duration `json:"poll_interval"`

	// MinWorkers 推荐工作线程数的下限
	MinWorkers int `json:"min_workers"`

	// MaxLoadPerCPU 每个 CPU 可承受的 1 分钟负载
	MaxLoadPerCPU float64 `json:"max_load_per_cpu"`

	// MinMemPerWorkerMB 构建资源画像时每个工作线程的最小内存
	MinMemPerWorkerMB float64 `json:"min_mem_per_worker_mb"`
}

// DefaultResourceConfig 返回默认资源管理配置
func DefaultResourceConfig() ResourceConfig {
	return ResourceConfig{
		MemoryReserveRatio: 0.15,
		PollInterval:       Duration(500 * time.Millisecond),
		MinWorkers:         1,
		MaxLoadPerCPU:      1.2,
		MinMemPerWorkerMB:  256,
	}
}

// Validate 验证资源管理配置
func (c ResourceConfig) Validate() error {
	if c.MemoryReserveRatio < 0 {
		return errors.New("memory reserve ratio must be non-negative")
	}
	if c.PollInterval < 0 {
		return errors.New("poll interval must be non-negative")
	}
	if c.MinWorkers < 1 {
		return errors.New("min workers must be at least 1")
	}
	if c.MaxLoadPerCPU < 0 {
		return errors.New("max load per cpu must be non-negative")
	}
	if c.MinMemPerWorkerMB < 0 {
		return errors.New("min memory per worker must be non-negative")
	}
	return nil
}

// Normalized 返回截断到合法范围后的副本
//
// 比例截断到 [0, 0.9]，轮询间隔不低于 10ms，负载阈值不低于 0.1，
// 最小工作线程数不低于 1。
func (c ResourceConfig) Normalized() ResourceConfig {
	if c.MemoryReserveRatio < 0 {
		c.MemoryReserveRatio = 0
	}
	if c.MemoryReserveRatio > MaxMemoryReserveRatio {
		c.MemoryReserveRatio = MaxMemoryReserveRatio
	}
	if c.PollInterval.Duration() < MinPollInterval {
		c.PollInterval = Duration(MinPollInterval)
	}
	if c.MinWorkers < 1 {
		c.MinWorkers = 1
	}
	if c.MaxLoadPerCPU < MinMaxLoadPerCPU {
		c.MaxLoadPerCPU = MinMaxLoadPerCPU
	}
	if c.MinMemPerWorkerMB < 0 {
		c.MinMemPerWorkerMB = 0
	}
	return c
}

// WithMemoryReserveRatio 设置内存保留比例
func (c ResourceConfig) WithMemoryReserveRatio(ratio float64) ResourceConfig {
	c.MemoryReserveRatio = ratio
	return c
}

// WithPollInterval 设置轮询间隔
func (c ResourceConfig) WithPollInterval(d time.Duration) ResourceConfig {
	c.PollInterval = Duration(d)
	return c
}

// WithMinWorkers 设置最小工作线程数
func (c ResourceConfig) WithMinWorkers(n int) ResourceConfig {
	c.MinWorkers = n
	return c
}

// WithMaxLoadPerCPU 设置每核负载阈值
func (c ResourceConfig) WithMaxLoadPerCPU(v float64) ResourceConfig {
	c.MaxLoadPerCPU = v
	return c
}

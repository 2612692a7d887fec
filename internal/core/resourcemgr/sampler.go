package resourcemgr

import (
	"errors"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

const bytesPerMB = 1024 * 1024

// ErrLoadUnsupported 平台不提供负载读数
var ErrLoadUnsupported = errors.New("load average unsupported")

// MemoryReading 内存读数（字节）
type MemoryReading struct {
	Total       uint64
	Available   uint64
	UsedPercent float64
}

// Sampler 系统资源采样器
//
// 任一方法失败时 Manager 退化为保守默认值，不向上传播错误。
type Sampler interface {
	// VirtualMemory 读取物理内存
	VirtualMemory() (MemoryReading, error)

	// CPUCount 读取逻辑 CPU 数
	CPUCount() (int, error)

	// LoadAverage1m 读取 1 分钟负载
	LoadAverage1m() (float64, error)
}

// ============================================================================
//                              gopsutil 采样器
// ============================================================================

// SystemSampler 基于 gopsutil 的生产采样器
type SystemSampler struct{}

// NewSystemSampler 创建系统采样器
func NewSystemSampler() *SystemSampler {
	return &SystemSampler{}
}

// VirtualMemory 实现 Sampler
func (SystemSampler) VirtualMemory() (MemoryReading, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryReading{}, err
	}
	return MemoryReading{
		Total:       vm.Total,
		Available:   vm.Available,
		UsedPercent: vm.UsedPercent,
	}, nil
}

// CPUCount 实现 Sampler
func (SystemSampler) CPUCount() (int, error) {
	return cpu.Counts(true)
}

// LoadAverage1m 实现 Sampler
func (SystemSampler) LoadAverage1m() (float64, error) {
	avg, err := load.Avg()
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, ErrLoadUnsupported
	}
	return avg.Load1, nil
}

// ============================================================================
//                              静态采样器
// ============================================================================

// StaticSampler 返回固定读数的采样器，用于测试和离线推演
//
// 读数可通过 Set* 方法并发修改。
type StaticSampler struct {
	mu          sync.Mutex
	totalMB     float64
	availableMB float64
	cpus        int
	load        *float64
	calls       int
}

// NewStaticSampler 创建静态采样器（无负载读数）
func NewStaticSampler(totalMB, availableMB float64, cpus int) *StaticSampler {
	return &StaticSampler{totalMB: totalMB, availableMB: availableMB, cpus: cpus}
}

// SetAvailableMB 修改可用内存
func (s *StaticSampler) SetAvailableMB(mb float64) {
	s.mu.Lock()
	s.availableMB = mb
	s.mu.Unlock()
}

// SetLoadAverage 设置负载读数
func (s *StaticSampler) SetLoadAverage(v float64) {
	s.mu.Lock()
	s.load = &v
	s.mu.Unlock()
}

// Calls 返回内存采样次数
func (s *StaticSampler) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// VirtualMemory 实现 Sampler
func (s *StaticSampler) VirtualMemory() (MemoryReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	total := uint64(s.totalMB * bytesPerMB)
	avail := uint64(s.availableMB * bytesPerMB)
	var pct float64
	if s.totalMB > 0 {
		pct = (s.totalMB - s.availableMB) / s.totalMB * 100
	}
	return MemoryReading{Total: total, Available: avail, UsedPercent: pct}, nil
}

// CPUCount 实现 Sampler
func (s *StaticSampler) CPUCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cpus, nil
}

// LoadAverage1m 实现 Sampler
func (s *StaticSampler) LoadAverage1m() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.load == nil {
		return 0, ErrLoadUnsupported
	}
	return *s.load, nil
}

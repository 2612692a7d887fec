// Package interfaces 定义 warpcore 公共接口
//
// 本文件定义 ResourceManager 接口，把系统资源读数转换为并发上限。
package interfaces

import (
	"time"

	"github.com/warpmc/go-warpcore/pkg/types"
)

// ResourceManager 定义资源管理器接口
//
// 所有方法都不返回错误：采集失败时退化为保守默认值。
type ResourceManager interface {
	// Snapshot 返回系统快照；refresh=false 时复用缓存（首次调用总会采集）
	Snapshot(refresh bool) types.SystemSnapshot

	// MemoryReserveMB 返回保留内存（总内存 × 保留比例）
	MemoryReserveMB(snap types.SystemSnapshot) float64

	// SafeAvailableMemoryMB 返回扣除保留后的可用内存，最小为 0
	SafeAvailableMemoryMB(snap types.SystemSnapshot) float64

	// RecommendWorkerCount 返回内存与 CPU 双重约束下的安全 worker 数
	RecommendWorkerCount(requested int, minMemPerWorkerMB float64, context string) int

	// WaitForHeadroom 阻塞直到可用内存满足要求或超时
	//
	// 超时返回 false，不是错误；调用方自行决定继续、排队还是失败。
	WaitForHeadroom(requiredMB float64, context string, timeout time.Duration) bool

	// BuildProfile 汇总新快照与推荐 worker 数
	BuildProfile(requestedWorkers int, minMemPerWorkerMB float64) types.ResourceProfile
}

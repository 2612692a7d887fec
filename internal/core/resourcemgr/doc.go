// Package resourcemgr 实现资源管理
//
// 把主机的内存与 CPU 读数转换为安全的并发上限：
//   - 系统快照（总内存/可用内存/CPU 数/1 分钟负载），带缓存
//   - 内存保留（总内存 × 保留比例）与安全可用内存
//   - 按内存和 CPU 负载推荐 worker 数
//   - 阻塞等待内存余量（带超时）
//
// # 快速开始
//
//	rm := resourcemgr.New(config.DefaultResourceConfig())
//	workers := rm.RecommendWorkerCount(8, 256, "scanner")
//
//	if !rm.WaitForHeadroom(512, "transcode", 30*time.Second) {
//	    // 超时不是错误，调用方决定继续还是放弃
//	}
//
// # 推荐算法
//
//	safe      = max(0, available - total × ratio)
//	memBound  = max(minWorkers, floor(safe / perWorker))   perWorker <= 0 时不约束
//	cpuBound  = max(minWorkers, cpus)，负载比超过阈值时按比例缩小
//	result    = max(minWorkers, min(requested, memBound, cpuBound))
//
// # 采样
//
// 生产环境使用 gopsutil（SystemSampler）；测试使用 StaticSampler。
// 任何读数失败都退化为保守默认值：CPU 数为 1，无负载读数，内存为 0。
//
// # 进程级实例
//
// Default() 返回懒加载的共享实例，供未使用 fx 装配的调用方使用。
//
// # 并发安全
//
// 快照缓存由单个 sync.Mutex 保护；WaitForHeadroom 在锁外睡眠。
//
// # 架构定位
//
// Tier: Core Layer Level 1（无依赖）
//
// 依赖关系：
//   - 依赖：config, pkg/types, internal/core/metrics
//   - 被依赖：taskrunner, introspect
package resourcemgr

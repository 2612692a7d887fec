package types

import "math"

// ============================================================================
//                              SystemSnapshot
// ============================================================================

// SystemSnapshot 某一时刻的系统资源读数
//
// 构造后不可修改。LoadAverage1m 在不支持的平台上为 nil。
type SystemSnapshot struct {
	TotalRAMMB     float64  `json:"total_ram_mb"`
	AvailableRAMMB float64  `json:"available_ram_mb"`
	UsedRAMMB      float64  `json:"used_ram_mb"`
	PercentUsed    float64  `json:"percent_used"`
	CPUCount       int      `json:"cpu_count"`
	LoadAverage1m  *float64 `json:"load_average_1m"`
}

// HasLoadAverage 是否有负载读数
func (s SystemSnapshot) HasLoadAverage() bool {
	return s.LoadAverage1m != nil
}

// Rounded 返回保留两位小数的副本（用于遥测输出）
func (s SystemSnapshot) Rounded() SystemSnapshot {
	out := s
	out.TotalRAMMB = round2(s.TotalRAMMB)
	out.AvailableRAMMB = round2(s.AvailableRAMMB)
	out.UsedRAMMB = round2(s.UsedRAMMB)
	out.PercentUsed = round2(s.PercentUsed)
	if s.LoadAverage1m != nil {
		v := round2(*s.LoadAverage1m)
		out.LoadAverage1m = &v
	}
	return out
}

// ============================================================================
//                              ResourceProfile
// ============================================================================

// ResourceProfile 由快照推导出的资源建议
type ResourceProfile struct {
	Snapshot               SystemSnapshot `json:"snapshot"`
	MemoryReserveMB        float64        `json:"memory_reserve_mb"`
	RecommendedTaskWorkers int            `json:"recommended_task_workers"`
}

// Rounded 返回保留两位小数的副本
func (p ResourceProfile) Rounded() ResourceProfile {
	return ResourceProfile{
		Snapshot:               p.Snapshot.Rounded(),
		MemoryReserveMB:        round2(p.MemoryReserveMB),
		RecommendedTaskWorkers: p.RecommendedTaskWorkers,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package types

// ============================================================================
//                              TaskState - 任务状态
// ============================================================================

// TaskState 任务状态
//
//	Queued → Running → {Succeeded | Failed}
//	Queued → Cancelled
type TaskState int32

const (
	// TaskQueued 已提交，等待 worker
	TaskQueued TaskState = iota
	// TaskRunning 正在执行（含退避等待）
	TaskRunning
	// TaskSucceeded 成功
	TaskSucceeded
	// TaskFailed 重试耗尽后失败
	TaskFailed
	// TaskCancelled 开始前被取消
	TaskCancelled
)

// String 返回状态名称
func (s TaskState) String() string {
	switch s {
	case TaskQueued:
		return "queued"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal 是否为终态
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskCancelled
}

// TaskStats 任务执行器统计
type TaskStats struct {
	Workers   int   `json:"workers"`
	Running   int   `json:"running"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
	Closed    bool  `json:"closed"`
}

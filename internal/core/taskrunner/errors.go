package taskrunner

import "errors"

var (
	// ErrRunnerClosed 执行器已关闭
	ErrRunnerClosed = errors.New("task runner is closed")

	// ErrResultTimeout 等待结果超时
	ErrResultTimeout = errors.New("task result timeout")

	// ErrTaskCancelled 任务在开始前被取消
	ErrTaskCancelled = errors.New("task cancelled before start")

	// ErrInsufficientHeadroom 内存余量不足且策略为拒绝
	ErrInsufficientHeadroom = errors.New("insufficient memory headroom")

	// ErrTaskPanicked 任务函数 panic
	ErrTaskPanicked = errors.New("task panicked")

	// ErrResultType 结果类型与期望不符
	ErrResultType = errors.New("unexpected task result type")

	// ErrNilFunc 任务函数为空
	ErrNilFunc = errors.New("task function is nil")
)

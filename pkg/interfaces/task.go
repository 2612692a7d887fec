package interfaces

import (
	"context"
	"time"

	"github.com/warpmc/go-warpcore/pkg/types"
)

// TaskHandle 已提交任务的延迟结果
type TaskHandle interface {
	// ID 任务唯一标识
	ID() string

	// State 当前状态
	State() types.TaskState

	// Done 任务进入终态时关闭
	Done() <-chan struct{}

	// Result 阻塞等待结果；timeout<=0 表示一直等待
	Result(timeout time.Duration) (any, error)

	// Cancel 取消尚未开始的任务，成功返回 true
	Cancel() bool
}

// TaskRunner 有界并发任务执行器
type TaskRunner interface {
	// Go 提交一个带重试的函数
	Go(ctx context.Context, name string, retries int, backoff time.Duration, fn func(ctx context.Context) (any, error)) (TaskHandle, error)

	// Close 停止接收提交；wait=true 时等待在途任务完成
	Close(wait bool) error

	// Stats 返回统计
	Stats() types.TaskStats
}

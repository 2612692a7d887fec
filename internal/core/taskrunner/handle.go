package taskrunner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/types"
)

var _ pkgif.TaskHandle = (*Handle)(nil)

// Spec 任务描述
//
// 调用参数由闭包捕获。Backoff 为 0 时使用执行器默认退避，小于 0 表示不退避。
type Spec struct {
	// Name 任务名，用于日志和内存余量等待的场景标签
	Name string

	// Fn 任务函数
	Fn func(ctx context.Context) (any, error)

	// Retries 失败后的最大重试次数，总尝试次数为 Retries+1
	Retries int

	// Backoff 基础退避，第 n 次重试前睡眠 Backoff × 2^(n-1)
	Backoff time.Duration

	// EstimatedMemoryMB 预估内存，0 时使用执行器默认值
	EstimatedMemoryMB float64
}

// Handle 已提交任务的延迟结果
type Handle struct {
	id   string
	spec Spec
	ctx  context.Context

	state    atomic.Int32
	attempts atomic.Int32
	done     chan struct{}

	// result/err 在 done 关闭前写入，关闭后只读
	result any
	err    error

	onFinish func(h *Handle, state types.TaskState)
}

func newHandle(ctx context.Context, id string, spec Spec, onFinish func(*Handle, types.TaskState)) *Handle {
	h := &Handle{
		id:       id,
		spec:     spec,
		ctx:      ctx,
		done:     make(chan struct{}),
		onFinish: onFinish,
	}
	h.state.Store(int32(types.TaskQueued))
	return h
}

// ID 任务唯一标识
func (h *Handle) ID() string {
	return h.id
}

// Name 任务名
func (h *Handle) Name() string {
	return h.spec.Name
}

// State 当前状态
func (h *Handle) State() types.TaskState {
	return types.TaskState(h.state.Load())
}

// Attempts 已开始的尝试次数
func (h *Handle) Attempts() int {
	return int(h.attempts.Load())
}

// Done 任务进入终态时关闭
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result 阻塞等待结果
//
// timeout<=0 表示一直等待；超时返回 ErrResultTimeout，任务本身不受影响。
// 失败时返回任务函数最后一次的错误（不做包装）。
func (h *Handle) Result(timeout time.Duration) (any, error) {
	if timeout <= 0 {
		<-h.done
		return h.result, h.err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return h.result, h.err
	case <-timer.C:
		return nil, ErrResultTimeout
	}
}

// Wait 阻塞等待结果或 ctx 结束
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel 取消尚未开始的任务
//
// 仅在排队状态下有效，成功时结果为 ErrTaskCancelled。
func (h *Handle) Cancel() bool {
	return h.cancelWith(ErrTaskCancelled)
}

func (h *Handle) cancelWith(err error) bool {
	if !h.state.CompareAndSwap(int32(types.TaskQueued), int32(types.TaskCancelled)) {
		return false
	}
	h.err = err
	close(h.done)
	h.onFinish(h, types.TaskCancelled)
	return true
}

// start 排队 → 运行，已取消时返回 false
func (h *Handle) start() bool {
	return h.state.CompareAndSwap(int32(types.TaskQueued), int32(types.TaskRunning))
}

// finish 运行 → 终态
func (h *Handle) finish(result any, err error) {
	h.result, h.err = result, err
	state := types.TaskSucceeded
	if err != nil {
		state = types.TaskFailed
	}
	h.state.Store(int32(state))
	close(h.done)
	h.onFinish(h, state)
}

// Await 等待结果并断言为 T
//
// 结果为 nil 时返回 T 的零值。
func Await[T any](h *Handle, timeout time.Duration) (T, error) {
	var zero T
	res, err := h.Result(timeout)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T", ErrResultType, res)
	}
	return v, nil
}

package taskrunner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
	"github.com/warpmc/go-warpcore/pkg/types"
)

var logger = log.Logger("core/taskrunner")

var _ pkgif.TaskRunner = (*Runner)(nil)

// Runner 有界并发任务执行器
//
// worker 数在构造时确定一次，之后不再调整。提交的任务进入 FIFO 队列，
// 由分发 goroutine 交给 ants 协程池；每个任务在整个生命周期内
// （包括退避睡眠）独占一个 worker。
type Runner struct {
	cfg     config.TaskConfig
	rm      pkgif.ResourceManager
	pool    *ants.Pool
	clock   clock.Clock
	metrics *metrics.Metrics

	mu      sync.Mutex
	cond    *sync.Cond
	closed  bool
	queue   []*Handle
	waiting map[*Handle]struct{}

	// wg 统计已接纳但未进入终态的任务
	wg             sync.WaitGroup
	dispatcherDone chan struct{}
	released       chan struct{}

	running   atomic.Int64
	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
}

// Option 执行器选项
type Option func(*Runner)

// WithClock 设置退避睡眠使用的时钟
func WithClock(c clock.Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// New 创建执行器
//
// rm 不为 nil 时，worker 数为 rm.RecommendWorkerCount(cfg.Workers, cfg.EstimatedTaskMemoryMB, cfg.Context)；
// 否则直接使用 cfg.Workers。
func New(cfg config.TaskConfig, rm pkgif.ResourceManager, opts ...Option) (*Runner, error) {
	if cfg.Context == "" {
		cfg.Context = config.DefaultTaskConfig().Context
	}
	if cfg.EstimatedTaskMemoryMB < 0 {
		cfg.EstimatedTaskMemoryMB = 0
	}

	r := &Runner{
		cfg:            cfg,
		rm:             rm,
		clock:          clock.New(),
		waiting:        make(map[*Handle]struct{}),
		dispatcherDone: make(chan struct{}),
		released:       make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)
	for _, opt := range opts {
		opt(r)
	}

	workers := max(cfg.Workers, 1)
	if rm != nil {
		workers = rm.RecommendWorkerCount(workers, cfg.EstimatedTaskMemoryMB, cfg.Context)
	}

	pool, err := ants.NewPool(workers,
		ants.WithLogger(logger),
		ants.WithPanicHandler(func(p any) {
			logger.Error("worker panic", "panic", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	r.pool = pool

	go r.dispatch()

	logger.Debug("任务执行器已创建", "context", cfg.Context, "requested", cfg.Workers, "workers", workers)
	return r, nil
}

// Run 创建执行器并执行 fn，返回前总会 Close(true)，fn panic 时也一样
func Run(cfg config.TaskConfig, rm pkgif.ResourceManager, fn func(r *Runner) error, opts ...Option) error {
	r, err := New(cfg, rm, opts...)
	if err != nil {
		return err
	}
	defer r.Close(true)
	return fn(r)
}

// Workers 返回 worker 数
func (r *Runner) Workers() int {
	return r.pool.Cap()
}

// Go 提交一个带重试的函数，实现 interfaces.TaskRunner
func (r *Runner) Go(ctx context.Context, name string, retries int, backoff time.Duration, fn func(ctx context.Context) (any, error)) (pkgif.TaskHandle, error) {
	h, err := r.Submit(ctx, Spec{Name: name, Fn: fn, Retries: retries, Backoff: backoff})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Submit 提交任务
//
// 已关闭时返回 ErrRunnerClosed。配置了资源管理器且预估内存大于 0 时，
// 先等待内存余量；等待超时按 HeadroomPolicy 处理（默认记录后继续）。
// 提交本身不会因 worker 繁忙而阻塞。ctx 会传给任务函数，为 nil 时使用 context.Background()。
func (r *Runner) Submit(ctx context.Context, spec Spec) (*Handle, error) {
	if spec.Fn == nil {
		return nil, ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if r.isClosed() {
		return nil, ErrRunnerClosed
	}

	if spec.Retries < 0 {
		spec.Retries = 0
	}
	if spec.Backoff == 0 {
		spec.Backoff = r.cfg.DefaultBackoff.Duration()
	} else if spec.Backoff < 0 {
		spec.Backoff = 0
	}

	required := spec.EstimatedMemoryMB
	if required <= 0 {
		required = r.cfg.EstimatedTaskMemoryMB
	}
	if r.rm != nil && required > 0 {
		label := spec.Name
		if label == "" {
			label = r.cfg.Context
		}
		if !r.rm.WaitForHeadroom(required, label, r.cfg.ResourceWaitTimeout.Duration()) {
			if r.cfg.RejectOnHeadroomTimeout() {
				r.metrics.TaskEvent(metrics.EventRejected)
				return nil, fmt.Errorf("%w: task %q needs %.0f MB", ErrInsufficientHeadroom, spec.Name, required)
			}
			logger.Warn("内存余量不足，继续提交", "task", spec.Name, "required_mb", required)
		}
	}

	h := newHandle(ctx, uuid.NewString(), spec, r.onFinish)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRunnerClosed
	}
	r.wg.Add(1)
	r.queue = append(r.queue, h)
	r.waiting[h] = struct{}{}
	r.submitted.Add(1)
	r.cond.Signal()
	r.mu.Unlock()

	r.metrics.TaskEvent(metrics.EventSubmitted)
	return h, nil
}

func (r *Runner) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// dispatch 按 FIFO 顺序把任务交给协程池，队列清空且已关闭时退出
func (r *Runner) dispatch() {
	defer close(r.dispatcherDone)
	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.closed {
			r.cond.Wait()
		}
		if len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}
		h := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		r.mu.Unlock()

		if h.State() != types.TaskQueued {
			continue
		}
		// 所有 worker 繁忙时阻塞
		if err := r.pool.Submit(func() { r.execute(h) }); err != nil {
			h.cancelWith(ErrRunnerClosed)
		}
	}
}

// execute 在 worker 中执行任务及其重试
func (r *Runner) execute(h *Handle) {
	if !h.start() {
		return
	}
	r.mu.Lock()
	delete(r.waiting, h)
	r.mu.Unlock()

	r.running.Add(1)
	r.metrics.TaskStarted()
	defer func() {
		r.running.Add(-1)
		r.metrics.TaskFinished()
	}()

	h.finish(r.runWithRetry(h))
}

func (r *Runner) runWithRetry(h *Handle) (any, error) {
	spec := h.spec
	for attempt := 0; ; attempt++ {
		h.attempts.Add(1)
		logger.Debug("任务开始", "task", spec.Name, "attempt", attempt)

		result, err := call(h.ctx, spec.Fn)
		if err == nil {
			logger.Debug("任务完成", "task", spec.Name, "attempt", attempt)
			return result, nil
		}

		if attempt >= spec.Retries {
			logger.Error("任务失败", "task", spec.Name, "attempt", attempt, "err", err)
			return nil, err
		}
		if h.ctx.Err() != nil {
			logger.Debug("任务上下文已结束，停止重试", "task", spec.Name, "attempt", attempt)
			return nil, err
		}

		sleep := backoffFor(spec.Backoff, attempt)
		logger.Warn("任务重试", "task", spec.Name, "attempt", attempt, "sleep", sleep, "err", err)
		r.metrics.TaskRetried()
		r.clock.Sleep(sleep)
	}
}

// maxBackoff 重试间隔上限，防止倍增溢出
const maxBackoff = time.Duration(1 << 62)

// backoffFor 第 attempt 次重试前的等待时间：base * 2^attempt，超过 maxBackoff 时饱和
func backoffFor(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		if d >= maxBackoff/2 {
			return maxBackoff
		}
		d *= 2
	}
	return min(d, maxBackoff)
}

// call 执行任务函数，panic 转换为错误
func call(ctx context.Context, fn func(context.Context) (any, error)) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrTaskPanicked, p, debug.Stack())
		}
	}()
	return fn(ctx)
}

func (r *Runner) onFinish(h *Handle, state types.TaskState) {
	switch state {
	case types.TaskSucceeded:
		r.succeeded.Add(1)
		r.metrics.TaskEvent(metrics.EventSucceeded)
	case types.TaskFailed:
		r.failed.Add(1)
		r.metrics.TaskEvent(metrics.EventFailed)
	case types.TaskCancelled:
		r.mu.Lock()
		delete(r.waiting, h)
		r.mu.Unlock()
		r.cancelled.Add(1)
		r.metrics.TaskEvent(metrics.EventCancelled)
	}
	r.wg.Done()
}

// Close 停止接收提交
//
// wait=true 时等待所有已接纳任务（包括排队中的）完成；
// wait=false 时取消尚未开始的任务并立即返回，运行中的任务继续执行到结束。
// 可重复调用；之后的 Close(true) 会等待第一次关闭完成，之后的 Close(false)
// 仍会取消排队任务，可用于中止一次尚未完成的 Close(true)。
func (r *Runner) Close(wait bool) error {
	r.mu.Lock()
	first := !r.closed
	r.closed = true
	var pending []*Handle
	if !wait {
		pending = make([]*Handle, 0, len(r.waiting))
		for h := range r.waiting {
			pending = append(pending, h)
		}
	}
	r.cond.Broadcast()
	r.mu.Unlock()

	n := 0
	for _, h := range pending {
		if h.Cancel() {
			n++
		}
	}

	if !first {
		if wait {
			<-r.released
		} else if n > 0 {
			logger.Debug("已取消排队任务", "context", r.cfg.Context, "cancelled", n)
		}
		return nil
	}

	if wait {
		r.wg.Wait()
		<-r.dispatcherDone
		r.pool.Release()
		close(r.released)
		logger.Debug("任务执行器已关闭", "context", r.cfg.Context)
		return nil
	}

	r.pool.Release()
	close(r.released)
	logger.Debug("任务执行器已关闭", "context", r.cfg.Context, "cancelled", n)
	return nil
}

// Stats 返回统计
func (r *Runner) Stats() types.TaskStats {
	r.mu.Lock()
	queued := len(r.waiting)
	closed := r.closed
	r.mu.Unlock()

	return types.TaskStats{
		Workers:   r.pool.Cap(),
		Running:   int(r.running.Load()),
		Queued:    queued,
		Submitted: r.submitted.Load(),
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
		Cancelled: r.cancelled.Load(),
		Closed:    closed,
	}
}

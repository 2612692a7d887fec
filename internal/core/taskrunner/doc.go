// Package taskrunner 实现资源感知的有界并发任务执行器
//
// # 并发上限
//
// worker 数在构造时由资源管理器推荐一次：
//
//	workers = rm.RecommendWorkerCount(cfg.Workers, cfg.EstimatedTaskMemoryMB, cfg.Context)
//
// 之后不再调整。任务由 ants 协程池执行。
//
// # 提交
//
// Submit 先等待内存余量（最长 ResourceWaitTimeout），然后把任务放入 FIFO 队列并立即返回 Handle。
// 等待超时的处理由 HeadroomPolicy 决定：proceed 记录警告后继续，reject 返回 ErrInsufficientHeadroom。
//
// # 重试
//
// 任务失败后最多重试 Retries 次，第 n 次重试前睡眠 Backoff × 2^(n-1)。
// 退避期间任务继续占用 worker。重试耗尽后 Handle 返回最后一次的错误，不做包装。
// 任务函数的 panic 被转换为 ErrTaskPanicked。
//
// # 关闭
//
//	r.Close(true)   // 等待全部已接纳任务完成
//	r.Close(false)  // 取消排队任务，运行中的任务继续
//
// Close 可重复调用。与 Close 并发的 Submit 要么返回 ErrRunnerClosed，要么被完整接纳。
//
// # 使用示例
//
//	err := taskrunner.Run(cfg, rm, func(r *taskrunner.Runner) error {
//	    h, err := r.Submit(ctx, taskrunner.Spec{Name: "fetch", Fn: fetch, Retries: 2})
//	    if err != nil {
//	        return err
//	    }
//	    _, err = h.Result(0)
//	    return err
//	})
package taskrunner

// Package metrics 提供 Prometheus 监控指标
//
// 所有组件共享一个独立的 prometheus.Registry（不使用全局默认 registry），
// 便于测试隔离，也避免与宿主进程的其他指标冲突。
//
// # 快速开始
//
//	m := metrics.New()
//	m.TaskSubmitted()
//	m.HTTPRequest("tmdb", "success", 120*time.Millisecond)
//
//	http.Handle("/metrics", m.Handler())
//
// # 指标
//
//	warp_resource_available_mb           可用内存
//	warp_resource_safe_available_mb      扣除保留后的可用内存
//	warp_resource_recommended_workers    最近一次推荐的 worker 数
//	warp_resource_headroom_wait_seconds  等待内存余量耗时 {result}
//	warp_tasks_total                     任务计数 {event}
//	warp_task_retries_total              任务重试次数
//	warp_tasks_in_flight                 正在执行的任务
//	warp_proxy_marks_total               代理标记 {result}
//	warp_proxy_rotations_total           粘性代理轮换次数
//	warp_http_requests_total             HTTP 调用结果 {service, outcome}
//	warp_http_retries_total              HTTP 重试 {service, reason}
//	warp_http_request_duration_seconds   单次 HTTP 尝试耗时 {service}
//
// # 空值安全
//
// *Metrics 的所有记录方法都接受 nil 接收者，
// 组件可以无条件调用，禁用指标时传入 nil 即可。
//
// # Fx 模块
//
//	app := fx.New(
//	    metrics.Module,
//	    fx.Invoke(func(m *metrics.Metrics) { ... }),
//	)
package metrics

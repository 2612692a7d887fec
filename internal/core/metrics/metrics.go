package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace 指标名前缀
const Namespace = "warp"

// 任务事件标签
const (
	EventSubmitted = "submitted"
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
	EventCancelled = "cancelled"
	EventRejected  = "rejected"
)

// Metrics 汇总所有组件的 Prometheus 指标
type Metrics struct {
	registry *prometheus.Registry

	availableMB        prometheus.Gauge
	safeAvailableMB    prometheus.Gauge
	recommendedWorkers prometheus.Gauge
	headroomWait       *prometheus.HistogramVec

	tasks         *prometheus.CounterVec
	taskRetries   prometheus.Counter
	tasksInFlight prometheus.Gauge

	proxyMarks     *prometheus.CounterVec
	proxyRotations prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpRetries  *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New 创建指标集合并注册到新的 registry
//
// registry 同时包含 Go 运行时与进程指标。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		availableMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "resource", Name: "available_mb",
			Help: "Available system memory in MB at the last snapshot.",
		}),
		safeAvailableMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "resource", Name: "safe_available_mb",
			Help: "Available memory minus the configured reserve, in MB.",
		}),
		recommendedWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "resource", Name: "recommended_workers",
			Help: "Most recent worker count recommendation.",
		}),
		headroomWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "resource", Name: "headroom_wait_seconds",
			Help:    "Time spent waiting for memory headroom.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"result"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Name: "tasks_total",
			Help: "Task lifecycle events.",
		}, []string{"event"}),
		taskRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Name: "task_retries_total",
			Help: "Task attempts beyond the first.",
		}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "tasks_in_flight",
			Help: "Tasks currently executing on a worker.",
		}),
		proxyMarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "proxy", Name: "marks_total",
			Help: "Proxy outcome reports.",
		}, []string{"result"}),
		proxyRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "proxy", Name: "rotations_total",
			Help: "Sticky proxy assignments dropped after repeated failures.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "http", Name: "requests_total",
			Help: "Completed HTTP calls by final outcome.",
		}, []string{"service", "outcome"}),
		httpRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "http", Name: "retries_total",
			Help: "HTTP retries by reason.",
		}, []string{"service", "reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Duration of a single HTTP attempt.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.availableMB, m.safeAvailableMB, m.recommendedWorkers, m.headroomWait,
		m.tasks, m.taskRetries, m.tasksInFlight,
		m.proxyMarks, m.proxyRotations,
		m.httpRequests, m.httpRetries, m.httpDuration,
	)
	return m
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Gatherer 返回指标采集器；m 为 nil 时返回空 registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Handler 返回 /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{})
}

// ============================================================================
//                              资源
// ============================================================================

// SetMemory 记录最近一次快照的内存读数
func (m *Metrics) SetMemory(availableMB, safeAvailableMB float64) {
	if m == nil {
		return
	}
	m.availableMB.Set(availableMB)
	m.safeAvailableMB.Set(safeAvailableMB)
}

// SetRecommendedWorkers 记录推荐 worker 数
func (m *Metrics) SetRecommendedWorkers(n int) {
	if m == nil {
		return
	}
	m.recommendedWorkers.Set(float64(n))
}

// ObserveHeadroomWait 记录一次余量等待
func (m *Metrics) ObserveHeadroomWait(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "timeout"
	}
	m.headroomWait.WithLabelValues(result).Observe(d.Seconds())
}

// ============================================================================
//                              任务
// ============================================================================

// TaskEvent 记录任务事件（submitted/succeeded/failed/cancelled/rejected）
func (m *Metrics) TaskEvent(event string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(event).Inc()
}

// TaskRetried 记录一次任务重试
func (m *Metrics) TaskRetried() {
	if m == nil {
		return
	}
	m.taskRetries.Inc()
}

// TaskStarted 任务开始执行
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksInFlight.Inc()
}

// TaskFinished 任务执行结束
func (m *Metrics) TaskFinished() {
	if m == nil {
		return
	}
	m.tasksInFlight.Dec()
}

// ============================================================================
//                              代理
// ============================================================================

// ProxyMarked 记录代理结果反馈
func (m *Metrics) ProxyMarked(good bool) {
	if m == nil {
		return
	}
	result := "good"
	if !good {
		result = "bad"
	}
	m.proxyMarks.WithLabelValues(result).Inc()
}

// ProxyRotated 记录一次粘性轮换
func (m *Metrics) ProxyRotated() {
	if m == nil {
		return
	}
	m.proxyRotations.Inc()
}

// ============================================================================
//                              HTTP
// ============================================================================

// HTTPRequest 记录一次 HTTP 调用的最终结果
func (m *Metrics) HTTPRequest(service, outcome string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(service, outcome).Inc()
}

// HTTPAttempt 记录单次尝试耗时
func (m *Metrics) HTTPAttempt(service string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(service).Observe(d.Seconds())
}

// HTTPRetry 记录一次重试
func (m *Metrics) HTTPRetry(service, reason string) {
	if m == nil {
		return
	}
	m.httpRetries.WithLabelValues(service, reason).Inc()
}

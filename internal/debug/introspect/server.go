package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
	"github.com/warpmc/go-warpcore/pkg/types"
)

var logger = log.Logger("debug/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// ============================================================================
//                              配置
// ============================================================================

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Resources 可选的资源管理器
	Resources pkgif.ResourceManager

	// Proxies 可选的代理池
	Proxies pkgif.ProxyManager

	// Tasks 可选的任务执行器
	Tasks pkgif.TaskRunner

	// Gatherer 可选的指标来源，设置后挂载 /metrics
	Gatherer prometheus.Gatherer

	// RequestedWorkers 资源画像默认的期望 worker 数
	RequestedWorkers int

	// MinMemPerWorkerMB 资源画像默认的单 worker 内存
	MinMemPerWorkerMB float64

	// CustomHandlers 自定义处理器
	CustomHandlers map[string]http.HandlerFunc
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地诊断 HTTP 服务
type Server struct {
	config Config
	router *mux.Router

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建诊断服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RequestedWorkers < 1 {
		cfg.RequestedWorkers = 1
	}
	s := &Server{
		config:    cfg,
		startTime: time.Now(),
	}
	s.router = s.routes()
	return s
}

// routes 创建路由，非 GET 请求由 mux 返回 405
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/debug/introspect", s.handleIntrospect).Methods(http.MethodGet)
	r.HandleFunc("/debug/introspect/resources", s.handleResources).Methods(http.MethodGet)
	r.HandleFunc("/debug/introspect/proxies", s.handleProxies).Methods(http.MethodGet)
	r.HandleFunc("/debug/introspect/tasks", s.handleTasks).Methods(http.MethodGet)
	r.HandleFunc("/debug/introspect/runtime", s.handleRuntime).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	r.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)

	for path, handler := range s.config.CustomHandlers {
		r.HandleFunc(path, handler)
	}
	return r
}

// Handler 返回路由，便于挂载到其他服务器或测试
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("诊断服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	logger.Info("诊断服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭诊断服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("诊断服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Resources *types.ResourceProfile `json:"resources,omitempty"`
	Proxies   []types.ProxyStat      `json:"proxies,omitempty"`
	Tasks     *types.TaskStats       `json:"tasks,omitempty"`
	Runtime   *RuntimeInfo           `json:"runtime"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

func (s *Server) handleIntrospect(w http.ResponseWriter, _ *http.Request) {
	response := IntrospectResponse{
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
		Runtime:   collectRuntimeInfo(),
	}
	if s.config.Resources != nil {
		p := s.profile(s.config.RequestedWorkers, s.config.MinMemPerWorkerMB)
		response.Resources = &p
	}
	if s.config.Proxies != nil {
		response.Proxies = s.config.Proxies.Stats()
	}
	if s.config.Tasks != nil {
		st := s.config.Tasks.Stats()
		response.Tasks = &st
	}
	writeJSON(w, response)
}

// handleResources 资源画像
//
// 查询参数 workers 与 mem_mb 覆盖默认的期望 worker 数与单 worker 内存。
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	if s.config.Resources == nil {
		http.Error(w, "Resource manager not available", http.StatusServiceUnavailable)
		return
	}

	workers := s.config.RequestedWorkers
	memMB := s.config.MinMemPerWorkerMB
	q := r.URL.Query()
	if v := q.Get("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid workers", http.StatusBadRequest)
			return
		}
		workers = n
	}
	if v := q.Get("mem_mb"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			http.Error(w, "invalid mem_mb", http.StatusBadRequest)
			return
		}
		memMB = f
	}

	writeJSON(w, s.profile(workers, memMB))
}

func (s *Server) handleProxies(w http.ResponseWriter, _ *http.Request) {
	if s.config.Proxies == nil {
		http.Error(w, "Proxy manager not available", http.StatusServiceUnavailable)
		return
	}
	stats := s.config.Proxies.Stats()
	if stats == nil {
		stats = []types.ProxyStat{}
	}
	writeJSON(w, stats)
}

func (s *Server) handleTasks(w http.ResponseWriter, _ *http.Request) {
	if s.config.Tasks == nil {
		http.Error(w, "Task runner not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.config.Tasks.Stats())
}

func (s *Server) handleRuntime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, collectRuntimeInfo())
}

// handleHealth 缺少资源管理器或任务执行器已关闭时为 degraded
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
	}
	if s.config.Resources == nil {
		health.Status = "degraded"
	}
	if s.config.Tasks != nil && s.config.Tasks.Stats().Closed {
		health.Status = "degraded"
	}
	writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) profile(workers int, memMB float64) types.ResourceProfile {
	return s.config.Resources.BuildProfile(workers, memMB).Rounded()
}

func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// writeJSON 写入 JSON 响应
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
	}
}

package config

import (
	"errors"
	"fmt"
	"time"
)

// 内存余量等待超时后的处理策略
const (
	// HeadroomProceed 超时后记录警告并继续提交
	HeadroomProceed = "proceed"

	// HeadroomReject 超时后拒绝提交
	HeadroomReject = "reject"
)

// TaskConfig 任务执行器配置
type TaskConfig struct {
	// Workers 期望的工作线程数，实际值由资源管理器裁剪
	Workers int `json:"workers"`

	// EstimatedTaskMemoryMB 单个任务的预估内存，用于推荐工作线程数
	EstimatedTaskMemoryMB float64 `json:"estimated_task_memory_mb"`

	// ResourceWaitTimeout 提交任务前等待内存余量的最长时间
	ResourceWaitTimeout Duration `json:"resource_wait_timeout"`

	// HeadroomPolicy 等待超时后的策略: proceed 或 reject
	HeadroomPolicy string `json:"headroom_policy"`

	// Context 日志中使用的场景标签
	Context string `json:"context"`

	// DefaultBackoff 未指定退避时使用的基础退避
	DefaultBackoff Duration `json:"default_backoff"`
}

// DefaultTaskConfig 返回默认任务执行器配置
func DefaultTaskConfig() TaskConfig {
	return TaskConfig{
		Workers:               4,
		EstimatedTaskMemoryMB: 256,
		ResourceWaitTimeout:   Duration(30 * time.Second),
		HeadroomPolicy:        HeadroomProceed,
		Context:               "task_runner",
		DefaultBackoff:        Duration(500 * time.Millisecond),
	}
}

// Validate 验证任务执行器配置
func (c TaskConfig) Validate() error {
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.EstimatedTaskMemoryMB < 0 {
		return errors.New("estimated task memory must be non-negative")
	}
	if c.ResourceWaitTimeout < 0 {
		return errors.New("resource wait timeout must be non-negative")
	}
	if c.DefaultBackoff < 0 {
		return errors.New("default backoff must be non-negative")
	}
	switch c.HeadroomPolicy {
	case "", HeadroomProceed, HeadroomReject:
	default:
		return fmt.Errorf("unknown headroom policy %q", c.HeadroomPolicy)
	}
	return nil
}

// RejectOnHeadroomTimeout 等待超时后是否拒绝提交
func (c TaskConfig) RejectOnHeadroomTimeout() bool {
	return c.HeadroomPolicy == HeadroomReject
}

// WithWorkers 设置工作线程数
func (c TaskConfig) WithWorkers(n int) TaskConfig {
	c.Workers = n
	return c
}

// WithEstimatedTaskMemoryMB 设置单任务预估内存
func (c TaskConfig) WithEstimatedTaskMemoryMB(mb float64) TaskConfig {
	c.EstimatedTaskMemoryMB = mb
	return c
}

// WithResourceWaitTimeout 设置余量等待超时
func (c TaskConfig) WithResourceWaitTimeout(d time.Duration) TaskConfig {
	c.ResourceWaitTimeout = Duration(d)
	return c
}

// WithHeadroomPolicy 设置余量超时策略
func (c TaskConfig) WithHeadroomPolicy(policy string) TaskConfig {
	c.HeadroomPolicy = policy
	return c
}

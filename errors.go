package warpcore

import "errors"

// 公共错误定义
var (
	// ErrNotStarted Core 未启动
	ErrNotStarted = errors.New("core not started")

	// ErrAlreadyStarted Core 已启动
	ErrAlreadyStarted = errors.New("core already started")

	// ErrCoreClosed Core 已关闭
	ErrCoreClosed = errors.New("core closed")
)

package httpsession

import "errors"

var (
	// ErrUnknownService 服务未配置
	ErrUnknownService = errors.New("unknown service")

	// ErrUnknownEndpoint 服务未定义该命名端点
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrEndpointArgs 端点模板参数不足或索引越界
	ErrEndpointArgs = errors.New("endpoint template arguments mismatch")
)

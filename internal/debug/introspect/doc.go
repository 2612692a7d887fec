// Package introspect 提供本地诊断 HTTP 服务
//
// 服务运行在本地端口，以 JSON 输出资源、代理与任务状态。
// 默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/introspect            - 完整诊断报告
//	GET /debug/introspect/resources  - 资源画像（?workers=8&mem_mb=512）
//	GET /debug/introspect/proxies    - 代理状态（凭据已脱敏）
//	GET /debug/introspect/tasks      - 任务执行器统计
//	GET /debug/introspect/runtime    - Go 运行时信息
//	GET /metrics                     - Prometheus 指标
//	GET /debug/pprof/*               - Go pprof 端点
//	GET /health                      - 健康检查
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:      "127.0.0.1:6060",
//	    Resources: rm,
//	    Proxies:   pm,
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// 通过 config.Diagnostics.EnableIntrospect 启用。
package introspect

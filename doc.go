// Package warpcore 提供资源受控的并发执行核心
//
// warpcore 把四个组件组装成一个 Core：
//
//   - ResourceManager：读取系统内存与 CPU，给出安全的 worker 数
//   - TaskRunner：有界并发执行带重试的任务
//   - ProxyManager：按域名粘性分配代理并评分轮换
//   - HTTPSession：带重试、退避与令牌刷新的 HTTP 会话
//
// # 快速开始
//
//	core, err := warpcore.Start(ctx,
//	    warpcore.WithConfigFile("warpcore.yaml"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer core.Close()
//
//	h, _ := core.Submit(ctx, taskrunner.Spec{
//	    Name:    "fetch",
//	    Retries: 2,
//	    Fn: func(ctx context.Context) (any, error) {
//	        return core.Get(ctx, "tmdb", "movie/550")
//	    },
//	})
//	resp, err := h.Result(0)
//
// # 组装
//
// 组件通过 go.uber.org/fx 组装，见 fx.go。WithFxOptions 可以注入额外模块
// 或替换默认提供者。
//
// # 诊断
//
// 配置 Diagnostics.EnableIntrospect 后启动本地诊断服务，
// 输出资源画像、代理状态、任务统计与 Prometheus 指标。
package warpcore

// Package httpsession 实现带重试、类型化错误和代理集成的 HTTP 会话
//
// # 单次逻辑调用
//
// 每次尝试的响应被分类为四种结果之一，重试循环只按分类分支：
//
//	success   状态码 <400 或在 AllowedStatuses 中；MarkGood
//	retry     429（可读取 Retry-After）、408、5xx、传输错误；后两者 MarkBad
//	refresh   401；每次调用最多刷新一次令牌，不消耗尝试次数
//	terminal  其他 4xx
//
// 尝试次数上限为 retry.max_attempts（默认 4）。第 n 次尝试失败后睡眠
//
//	min(max_backoff, base_backoff × 2^(n-1)) + random[0, jitter]
//
// 429 且服务遵守 Retry-After 时，先加上 Retry-After（秒数或 HTTP-date，上限 retry_after_cap）。
// 调用方 ctx 结束时立即返回，不再重试。
//
// # 错误
//
// 失败总是返回 *types.NetError，调用方按类别判断：
//
//	if errors.Is(err, types.ErrNotFound) { ... }
//	switch types.KindOf(err) { case types.KindTimeout: ... }
//
// # 代理
//
// 所有请求共享同一个 http.Transport，代理通过请求上下文传给 Transport.Proxy，
// 连接池按代理地址区分。
//
// # URL
//
// URLManager 按服务配置拼接基础地址与路径，注入 api_key、默认查询参数与默认头部：
//
//	url, hdr, err := urls.BuildFromEndpoint("tmdb", "movie_details", []any{550}, nil)
package httpsession

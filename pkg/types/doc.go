// Package types 定义 warpcore 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 warpcore 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - snapshot.go  - SystemSnapshot, ResourceProfile
//   - proxy.go     - ProxyPair, ProxyStat
//   - task.go      - TaskState, TaskStats
//   - neterror.go  - NetErrorKind, NetError（HTTP/传输错误分类）
//   - errors.go    - 公共错误定义
//
// # 错误分类
//
// HTTP 层的所有错误都是 *NetError，调用方按 Kind 分支，不要匹配错误文本：
//
//	if errors.Is(err, types.ErrNotFound) {
//	    // 404
//	}
//	switch types.KindOf(err) {
//	case types.KindRateLimited, types.KindUpstream5xx:
//	    // 稍后重试
//	}
package types

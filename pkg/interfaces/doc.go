// Package interfaces 定义 warpcore 的公共接口
//
// 一个接口文件对应一个 internal/core 实现目录：
//   - resource.go - 资源管理（internal/core/resourcemgr）
//   - task.go     - 任务执行器（internal/core/taskrunner）
//   - proxy.go    - 代理池（internal/core/proxymgr）
//   - http.go     - HTTP 会话与令牌刷新（internal/core/httpsession）
//
// 目录、扫描、字幕、插件等上层子系统只依赖本包的接口，
// 这是它们获取并发能力与网络 I/O 的唯一途径。
package interfaces

package interfaces

import "github.com/warpmc/go-warpcore/pkg/types"

// ProxyManager 定义代理池接口
//
// 只负责选择、评分和轮换，从不自己发起网络 I/O。
type ProxyManager interface {
	// EnabledForDomain 全局启用且代理池非空时返回 true
	EnabledForDomain(domain string) bool

	// Choose 为域名选择代理，优先返回未过期的粘性分配
	Choose(domain string) (types.ProxyPair, bool)

	// MarkGood 记录一次成功
	MarkGood(pair types.ProxyPair)

	// MarkBad 记录一次失败，达到阈值时清除指向该代理的粘性分配
	MarkBad(pair types.ProxyPair)

	// Stats 返回代理状态视图
	Stats() []types.ProxyStat
}

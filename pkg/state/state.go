// Package state 提供用户在线状态与中断标记的存储抽象。
//
// 在线状态记录用户当前持有的连接集合, 供网关重启后恢复与跨实例查询;
// 中断标记用于长任务的协作式取消: 业务侧在任务循环中轮询 Interrupted,
// 命中后自行停止并清除标记。
package state

import (
	"context"
	"time"
)

// Store 状态存储接口, memory 与 redis 两种驱动
type Store interface {
	// Online 记录用户连接上线
	Online(ctx context.Context, user, connID string) error

	// Offline 移除用户连接, 最后一个连接下线后用户条目清理
	Offline(ctx context.Context, user, connID string) error

	// Connections 返回用户当前的连接 ID 列表
	Connections(ctx context.Context, user string) ([]string, error)

	// IsOnline 用户是否至少有一个连接在线
	IsOnline(ctx context.Context, user string) (bool, error)

	// Interrupt 置用户的中断标记, ttl 到期自动清除, 0 表示不过期
	Interrupt(ctx context.Context, user string, ttl time.Duration) error

	// Interrupted 查询用户的中断标记
	Interrupted(ctx context.Context, user string) (bool, error)

	// ClearInterrupt 清除用户的中断标记
	ClearInterrupt(ctx context.Context, user string) error

	// Ping 检查存储可用性
	Ping(ctx context.Context) error

	// Close 释放底层资源
	Close() error
}

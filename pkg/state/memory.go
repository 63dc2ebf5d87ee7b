package state

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore 内存状态存储实现。
// 连接集合用互斥锁保护的双层 map, 中断标记用带过期的 go-cache。
type memoryStore struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}

	flags        *gocache.Cache
	interruptTTL time.Duration
}

// newMemoryStore 创建内存状态存储
func newMemoryStore(cfg *Config) (Store, error) {
	if cfg.Memory == nil {
		cfg.Memory = &MemoryConfig{CleanupInterval: 5 * time.Minute}
	}
	cleanup := cfg.Memory.CleanupInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	return &memoryStore{
		conns:        make(map[string]map[string]struct{}),
		flags:        gocache.New(cfg.InterruptTTL, cleanup),
		interruptTTL: cfg.InterruptTTL,
	}, nil
}

// Online 记录用户连接上线
func (m *memoryStore) Online(_ context.Context, user, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.conns[user]
	if !ok {
		set = make(map[string]struct{})
		m.conns[user] = set
	}
	set[connID] = struct{}{}
	return nil
}

// Offline 移除用户连接, 空集合随之清理
func (m *memoryStore) Offline(_ context.Context, user, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.conns[user]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(m.conns, user)
		}
	}
	return nil
}

// Connections 返回用户连接列表
func (m *memoryStore) Connections(_ context.Context, user string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.conns[user]
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids, nil
}

// IsOnline 用户是否在线
func (m *memoryStore) IsOnline(_ context.Context, user string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns[user]) > 0, nil
}

// Interrupt 置中断标记
func (m *memoryStore) Interrupt(_ context.Context, user string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.interruptTTL
	}
	m.flags.Set(user, true, ttl)
	return nil
}

// Interrupted 查询中断标记
func (m *memoryStore) Interrupted(_ context.Context, user string) (bool, error) {
	_, found := m.flags.Get(user)
	return found, nil
}

// ClearInterrupt 清除中断标记
func (m *memoryStore) ClearInterrupt(_ context.Context, user string) error {
	m.flags.Delete(user)
	return nil
}

// Ping 内存存储始终可用
func (m *memoryStore) Ping(context.Context) error {
	return nil
}

// Close 清空所有状态
func (m *memoryStore) Close() error {
	m.mu.Lock()
	m.conns = make(map[string]map[string]struct{})
	m.mu.Unlock()
	m.flags.Flush()
	return nil
}

package ws

import (
	"sync"
	"sync/atomic"
)

// Pool 活跃连接池, 按连接 ID 索引
type Pool struct {
	clients sync.Map // id -> *Client
	count   atomic.Int64
	max     int
}

// NewPool 创建连接池, max 为 0 时不限制容量
func NewPool(max int) *Pool {
	return &Pool{max: max}
}

// Add 加入连接, 超过容量上限返回 ErrMaxConnections
func (p *Pool) Add(c *Client) error {
	if p.max > 0 && p.count.Load() >= int64(p.max) {
		return ErrMaxConnections
	}
	if _, loaded := p.clients.LoadOrStore(c.ID, c); loaded {
		return nil
	}
	p.count.Add(1)
	return nil
}

// Remove 移除连接, 重复移除为空操作
func (p *Pool) Remove(id string) {
	if _, loaded := p.clients.LoadAndDelete(id); loaded {
		p.count.Add(-1)
	}
}

// Get 按 ID 查找连接
func (p *Pool) Get(id string) (*Client, bool) {
	v, ok := p.clients.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Client), true
}

// Count 当前连接数
func (p *Pool) Count() int {
	return int(p.count.Load())
}

// Range 遍历所有连接, fn 返回 false 时终止
func (p *Pool) Range(fn func(c *Client) bool) {
	p.clients.Range(func(_, v any) bool {
		return fn(v.(*Client))
	})
}

// All 返回所有连接的快照
func (p *Pool) All() []*Client {
	clients := make([]*Client, 0, p.count.Load())
	p.clients.Range(func(_, v any) bool {
		clients = append(clients, v.(*Client))
		return true
	})
	return clients
}

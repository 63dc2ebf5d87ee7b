package ws

import "sync/atomic"

// Metrics 网关指标收集接口, 实现方可对接 Prometheus 等系统
type Metrics interface {
	// IncrementConnections 连接数+1
	IncrementConnections()
	// DecrementConnections 连接数-1
	DecrementConnections()
	// IncrementMessages 按事件名统计收到的消息
	IncrementMessages(event string)
	// IncrementInvalidMessages 统计无法解析或缺字段的消息
	IncrementInvalidMessages()
	// IncrementUnknownEvents 统计未注册事件
	IncrementUnknownEvents()
	// IncrementDroppedMessages 统计投递失败被丢弃的消息
	IncrementDroppedMessages()
	// IncrementReadErrors 统计读错误
	IncrementReadErrors()
	// IncrementWriteErrors 统计写错误
	IncrementWriteErrors()
}

// NoopMetrics 空实现, 未配置指标时使用
type NoopMetrics struct{}

func (NoopMetrics) IncrementConnections()      {}
func (NoopMetrics) DecrementConnections()      {}
func (NoopMetrics) IncrementMessages(string)   {}
func (NoopMetrics) IncrementInvalidMessages()  {}
func (NoopMetrics) IncrementUnknownEvents()    {}
func (NoopMetrics) IncrementDroppedMessages()  {}
func (NoopMetrics) IncrementReadErrors()       {}
func (NoopMetrics) IncrementWriteErrors()      {}

// AtomicMetrics 基于原子计数的内置实现
type AtomicMetrics struct {
	connections     atomic.Int64
	messages        atomic.Int64
	invalidMessages atomic.Int64
	unknownEvents   atomic.Int64
	droppedMessages atomic.Int64
	readErrors      atomic.Int64
	writeErrors     atomic.Int64
}

// NewAtomicMetrics 创建原子指标收集器
func NewAtomicMetrics() *AtomicMetrics {
	return &AtomicMetrics{}
}

func (m *AtomicMetrics) IncrementConnections()    { m.connections.Add(1) }
func (m *AtomicMetrics) DecrementConnections()    { m.connections.Add(-1) }
func (m *AtomicMetrics) IncrementMessages(string) { m.messages.Add(1) }
func (m *AtomicMetrics) IncrementInvalidMessages() {
	m.invalidMessages.Add(1)
}
func (m *AtomicMetrics) IncrementUnknownEvents()   { m.unknownEvents.Add(1) }
func (m *AtomicMetrics) IncrementDroppedMessages() { m.droppedMessages.Add(1) }
func (m *AtomicMetrics) IncrementReadErrors()      { m.readErrors.Add(1) }
func (m *AtomicMetrics) IncrementWriteErrors()     { m.writeErrors.Add(1) }

// Connections 当前连接数
func (m *AtomicMetrics) Connections() int64 { return m.connections.Load() }

// Messages 累计消息数
func (m *AtomicMetrics) Messages() int64 { return m.messages.Load() }

// InvalidMessages 累计无效消息数
func (m *AtomicMetrics) InvalidMessages() int64 { return m.invalidMessages.Load() }

// UnknownEvents 累计未注册事件数
func (m *AtomicMetrics) UnknownEvents() int64 { return m.unknownEvents.Load() }

// DroppedMessages 累计丢弃消息数
func (m *AtomicMetrics) DroppedMessages() int64 { return m.droppedMessages.Load() }

package job

import "sync/atomic"

// Metrics 队列指标收集接口
type Metrics interface {
	// IncrementSubmitted 提交成功的任务数
	IncrementSubmitted()
	// IncrementRejected 因队列满被拒绝的任务数
	IncrementRejected()
	// IncrementCompleted 执行成功的任务数
	IncrementCompleted()
	// IncrementFailed 执行失败(含 panic)的任务数
	IncrementFailed()
	// SetQueueDepth 当前队列深度
	SetQueueDepth(n int)
}

// NoopMetrics 空实现
type NoopMetrics struct{}

func (NoopMetrics) IncrementSubmitted() {}
func (NoopMetrics) IncrementRejected()  {}
func (NoopMetrics) IncrementCompleted() {}
func (NoopMetrics) IncrementFailed()    {}
func (NoopMetrics) SetQueueDepth(int)   {}

// AtomicMetrics 基于原子计数的内置实现
type AtomicMetrics struct {
	submitted  atomic.Int64
	rejected   atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	queueDepth atomic.Int64
}

// NewAtomicMetrics 创建原子指标收集器
func NewAtomicMetrics() *AtomicMetrics {
	return &AtomicMetrics{}
}

func (m *AtomicMetrics) IncrementSubmitted() { m.submitted.Add(1) }
func (m *AtomicMetrics) IncrementRejected()  { m.rejected.Add(1) }
func (m *AtomicMetrics) IncrementCompleted() { m.completed.Add(1) }
func (m *AtomicMetrics) IncrementFailed()    { m.failed.Add(1) }
func (m *AtomicMetrics) SetQueueDepth(n int) { m.queueDepth.Store(int64(n)) }

// Submitted 累计提交数
func (m *AtomicMetrics) Submitted() int64 { return m.submitted.Load() }

// Rejected 累计拒绝数
func (m *AtomicMetrics) Rejected() int64 { return m.rejected.Load() }

// Completed 累计完成数
func (m *AtomicMetrics) Completed() int64 { return m.completed.Load() }

// Failed 累计失败数
func (m *AtomicMetrics) Failed() int64 { return m.failed.Load() }

// QueueDepth 当前队列深度
func (m *AtomicMetrics) QueueDepth() int64 { return m.queueDepth.Load() }

package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var jobSeq atomic.Uint64

// Queue 先进先出任务队列, 固定工作协程池并发消费。
// 提交非阻塞, 队列满即拒绝; 单任务失败不影响队列与其他任务。
type Queue struct {
	config  *Config
	logger  Logger
	metrics Metrics

	jobs chan *Job

	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	wg      sync.WaitGroup
}

// NewQueue 创建队列, 选项覆盖默认配置
func NewQueue(opts ...Option) (*Queue, error) {
	q := &Queue{
		config:  DefaultConfig(),
		logger:  NopLogger{},
		metrics: NoopMetrics{},
	}
	for _, opt := range opts {
		opt(q)
	}
	if err := q.config.Validate(); err != nil {
		return nil, err
	}
	q.jobs = make(chan *Job, q.config.QueueSize)
	return q, nil
}

// Start 启动工作协程, 重复调用为空操作
func (q *Queue) Start() {
	if !q.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("queue started", "workers", q.config.Workers, "capacity", q.config.QueueSize)
}

// Submit 非阻塞提交任务。
// 队列满返回 ErrQueueFull, 已关闭返回 ErrQueueClosed。
func (q *Queue) Submit(j *Job) error {
	if j == nil {
		return ErrNilJob
	}
	if j.Work == nil {
		return ErrNilWork
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.IncrementRejected()
		return ErrQueueClosed
	}

	if j.ID == "" {
		j.ID = fmt.Sprintf("job-%d", jobSeq.Add(1))
	}
	j.EnqueuedAt = time.Now()
	if j.Context == nil {
		j.Context = make(map[string]any, 8)
	}
	j.Context[KeyName] = j.Name

	select {
	case q.jobs <- j:
		q.metrics.IncrementSubmitted()
		q.metrics.SetQueueDepth(len(q.jobs))
		return nil
	default:
		q.metrics.IncrementRejected()
		return ErrQueueFull
	}
}

// Depth 当前队列深度
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Stop 关闭队列并等待在途任务完成, ctx 到期则提前返回
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("queue drained")
		return nil
	case <-ctx.Done():
		q.logger.Warn("queue stop timed out", "pending", len(q.jobs))
		return ctx.Err()
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for j := range q.jobs {
		q.metrics.SetQueueDepth(len(q.jobs))
		q.execute(id, j)
	}
}

// execute 执行单个任务: 错误与 panic 写入上下文 data 键,
// 完成回调无论成败都会调用, 执行完毕后任务对象回池。
func (q *Queue) execute(workerID int, j *Job) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if q.config.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, q.config.JobTimeout)
	}

	start := time.Now()
	result, err := q.safeRun(ctx, j)
	if cancel != nil {
		cancel()
	}

	if err != nil {
		j.Context[KeyData] = err.Error()
		j.Context[KeyFailed] = true
		q.metrics.IncrementFailed()
		q.logger.Error("job failed",
			"job_id", j.ID, "name", j.Name, "worker", workerID,
			"elapsed", time.Since(start), "error", err)
	} else {
		j.Context[KeyData] = result
		q.metrics.IncrementCompleted()
		q.logger.Debug("job completed",
			"job_id", j.ID, "name", j.Name, "worker", workerID,
			"elapsed", time.Since(start))
	}

	q.safeComplete(j)
	Release(j)
}

// safeRun 执行任务函数, panic 转 error
func (q *Queue) safeRun(ctx context.Context, j *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(CodePanic, fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return j.Work(ctx, j.Context)
}

// safeComplete 执行完成回调, 回调 panic 不影响工作协程
func (q *Queue) safeComplete(j *Job) {
	if j.OnComplete == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("completion callback panic", "job_id", j.ID, "name", j.Name, "panic", r)
		}
	}()
	j.OnComplete(j.Context)
}

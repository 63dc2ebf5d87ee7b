package job

import (
	"fmt"
	"time"
)

// Config 队列配置
type Config struct {
	// Workers 工作协程数
	Workers int

	// QueueSize 队列容量
	QueueSize int

	// JobTimeout 单任务执行超时, 0 表示不限制
	JobTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:    2,
		QueueSize:  256,
		JobTimeout: 5 * time.Minute,
	}
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout < 0 {
		return fmt.Errorf("%w: job timeout must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Option 配置选项函数
type Option func(*Queue)

// WithWorkers 设置工作协程数
func WithWorkers(n int) Option {
	return func(q *Queue) { q.config.Workers = n }
}

// WithQueueSize 设置队列容量
func WithQueueSize(n int) Option {
	return func(q *Queue) { q.config.QueueSize = n }
}

// WithTimeout 设置单任务执行超时
func WithTimeout(d time.Duration) Option {
	return func(q *Queue) { q.config.JobTimeout = d }
}

// WithLogger 设置日志器
func WithLogger(logger Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(metrics Metrics) Option {
	return func(q *Queue) {
		if metrics != nil {
			q.metrics = metrics
		}
	}
}

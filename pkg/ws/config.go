package ws

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Config 网关配置
type Config struct {
	// MaxConnections 最大并发连接数, 0 表示不限制
	MaxConnections int

	// ReadBufferSize 读缓冲区字节数
	ReadBufferSize int

	// WriteBufferSize 写缓冲区字节数
	WriteBufferSize int

	// HandshakeTimeout 握手超时
	HandshakeTimeout time.Duration

	// MaxMessageSize 单条消息最大字节数
	MaxMessageSize int64

	// HeartbeatInterval 心跳发送间隔
	HeartbeatInterval time.Duration

	// HeartbeatTimeout 心跳超时, 超时未收到 pong 则断开
	HeartbeatTimeout time.Duration

	// MessageQueueSize 每连接普通发送队列长度
	MessageQueueSize int

	// HighPriorityQueueSize 每连接高优先级发送队列长度
	HighPriorityQueueSize int

	// DispatchTimeout 同步处理器执行超时
	DispatchTimeout time.Duration

	// MaxInvalidMessages 连续无效消息上限, 超过则断开连接
	MaxInvalidMessages int

	// AuthRequired 是否要求连接携带合法凭证
	AuthRequired bool

	// Workers 后台任务工作协程数
	Workers int

	// JobQueueSize 后台任务队列容量
	JobQueueSize int

	// CheckOrigin 跨域来源检查函数
	CheckOrigin func(r *http.Request) bool

	// EnableCompression 是否启用 permessage-deflate 压缩
	EnableCompression bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxConnections:        10000,
		ReadBufferSize:        4096,
		WriteBufferSize:       4096,
		HandshakeTimeout:      10 * time.Second,
		MaxMessageSize:        1 << 20,
		HeartbeatInterval:     30 * time.Second,
		HeartbeatTimeout:      60 * time.Second,
		MessageQueueSize:      256,
		HighPriorityQueueSize: 64,
		DispatchTimeout:       30 * time.Second,
		MaxInvalidMessages:    10,
		AuthRequired:          false,
		Workers:               2,
		JobQueueSize:          256,
		EnableCompression:     false,
	}
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.MaxConnections < 0 {
		return fmt.Errorf("%w: max connections must be >= 0", ErrInvalidConfig)
	}
	if c.ReadBufferSize <= 0 || c.WriteBufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be positive", ErrInvalidConfig)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max message size must be positive", ErrInvalidConfig)
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("%w: heartbeat interval and timeout must be positive", ErrInvalidConfig)
	}
	if c.HeartbeatTimeout <= c.HeartbeatInterval {
		return fmt.Errorf("%w: heartbeat timeout must be greater than interval", ErrInvalidConfig)
	}
	if c.MessageQueueSize <= 0 || c.HighPriorityQueueSize <= 0 {
		return fmt.Errorf("%w: message queue size must be positive", ErrInvalidConfig)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("%w: dispatch timeout must be positive", ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("%w: job queue size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Option 配置选项函数
type Option func(*Manager)

// WithConfig 整体替换配置
func WithConfig(cfg *Config) Option {
	return func(m *Manager) {
		if cfg != nil {
			m.config = cfg
		}
	}
}

// WithMaxConnections 设置最大连接数
func WithMaxConnections(n int) Option {
	return func(m *Manager) { m.config.MaxConnections = n }
}

// WithHeartbeat 设置心跳间隔与超时
func WithHeartbeat(interval, timeout time.Duration) Option {
	return func(m *Manager) {
		m.config.HeartbeatInterval = interval
		m.config.HeartbeatTimeout = timeout
	}
}

// WithMaxMessageSize 设置单条消息大小上限
func WithMaxMessageSize(n int64) Option {
	return func(m *Manager) { m.config.MaxMessageSize = n }
}

// WithMessageQueueSize 设置每连接发送队列长度
func WithMessageQueueSize(n int) Option {
	return func(m *Manager) { m.config.MessageQueueSize = n }
}

// WithDispatchTimeout 设置同步处理超时
func WithDispatchTimeout(d time.Duration) Option {
	return func(m *Manager) { m.config.DispatchTimeout = d }
}

// WithAuthRequired 开启连接认证
func WithAuthRequired(required bool) Option {
	return func(m *Manager) { m.config.AuthRequired = required }
}

// WithAuthenticator 设置认证器, 同时开启认证
func WithAuthenticator(a Authenticator) Option {
	return func(m *Manager) {
		m.authenticator = a
		if a != nil {
			m.config.AuthRequired = true
		}
	}
}

// WithWorkers 设置后台任务工作协程数
func WithWorkers(n int) Option {
	return func(m *Manager) { m.config.Workers = n }
}

// WithJobQueueSize 设置后台任务队列容量
func WithJobQueueSize(n int) Option {
	return func(m *Manager) { m.config.JobQueueSize = n }
}

// WithMetrics 设置指标收集器
func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithLogger 设置日志器
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCheckOrigin 设置自定义来源检查
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(m *Manager) { m.config.CheckOrigin = fn }
}

// WithOriginWhitelist 按白名单检查来源, 支持 *.example.com 通配
func WithOriginWhitelist(origins ...string) Option {
	return func(m *Manager) { m.config.CheckOrigin = originWhitelist(origins) }
}

// WithAllowAllOrigins 允许任意来源, 仅用于开发环境
func WithAllowAllOrigins() Option {
	return func(m *Manager) {
		m.config.CheckOrigin = func(*http.Request) bool { return true }
	}
}

// WithEnableCompression 启用消息压缩
func WithEnableCompression() Option {
	return func(m *Manager) { m.config.EnableCompression = true }
}

// originWhitelist 构造来源白名单检查函数
func originWhitelist(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	var wildcards []string
	for _, o := range origins {
		if strings.HasPrefix(o, "*.") {
			wildcards = append(wildcards, strings.TrimPrefix(o, "*"))
			continue
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		for _, suffix := range wildcards {
			if strings.HasSuffix(origin, suffix) {
				return true
			}
		}
		return false
	}
}

// newUpgrader 按配置构造 websocket 升级器
func newUpgrader(cfg *Config) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:    cfg.ReadBufferSize,
		WriteBufferSize:   cfg.WriteBufferSize,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		CheckOrigin:       cfg.CheckOrigin,
		EnableCompression: cfg.EnableCompression,
	}
}

package ws

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/tokmz/danqing/pkg/job"
)

// Manager 网关核心, 管理连接生命周期、路由分发与消息推送
type Manager struct {
	config *Config

	pool     *Pool
	sessions *Sessions
	router   *Router
	queue    *job.Queue
	events   *EventBus

	authenticator Authenticator
	logger        Logger
	metrics       Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	closed  atomic.Bool
}

// NewManager 创建网关, 选项覆盖默认配置
func NewManager(opts ...Option) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:  DefaultConfig(),
		router:  NewRouter(),
		logger:  NopLogger{},
		metrics: NoopMetrics{},
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.config.Validate(); err != nil {
		cancel()
		return nil, err
	}
	if m.config.AuthRequired && m.authenticator == nil {
		cancel()
		return nil, ErrAuthFailed
	}

	m.pool = NewPool(m.config.MaxConnections)
	m.sessions = NewSessions()
	m.events = NewEventBus(256, 1)

	queue, err := job.NewQueue(
		job.WithWorkers(m.config.Workers),
		job.WithQueueSize(m.config.JobQueueSize),
		job.WithTimeout(m.config.DispatchTimeout),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	m.queue = queue
	return m, nil
}

// Router 返回事件路由表
func (m *Manager) Router() *Router {
	return m.router
}

// Events 返回内部事件总线
func (m *Manager) Events() *EventBus {
	return m.events
}

// Sessions 返回用户会话索引
func (m *Manager) Sessions() *Sessions {
	return m.sessions
}

// Online 当前连接总数
func (m *Manager) Online() int {
	return m.pool.Count()
}

// Run 启动后台任务队列, 重复调用为空操作
func (m *Manager) Run() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.queue.Start()
	m.logger.Info("gateway started", "workers", m.config.Workers)
}

// HandleUpgrade 认证并升级 HTTP 连接为 WebSocket。
// 认证失败回 401; 连接数达到上限回 503。
func (m *Manager) HandleUpgrade(w http.ResponseWriter, r *http.Request) error {
	if m.closed.Load() {
		http.Error(w, "gateway shutting down", http.StatusServiceUnavailable)
		return ErrManagerClosed
	}

	var user string
	if m.config.AuthRequired {
		u, err := m.authenticator.Authenticate(r)
		if err != nil {
			m.logger.Warn("authentication rejected", "remote", r.RemoteAddr, "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return ErrAuthFailed
		}
		user = u
	}

	if m.config.MaxConnections > 0 && m.pool.Count() >= m.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return ErrMaxConnections
	}

	upgrader := newUpgrader(m.config)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return err
	}

	c := newClient(conn, m, user)
	if err := m.pool.Add(c); err != nil {
		_ = conn.Close()
		return err
	}
	if user != "" {
		m.sessions.Bind(user, c)
	}
	m.metrics.IncrementConnections()
	m.logger.Info("client connected", "conn_id", c.ID, "user", user, "online", m.pool.Count())
	m.events.Publish(Event{Type: EventClientConnected, ConnID: c.ID, User: user})

	go c.writePump()
	go c.readPump()
	return nil
}

// onDisconnect 连接关闭时的清理, 由 Client.Close 调用
func (m *Manager) onDisconnect(c *Client) {
	m.pool.Remove(c.ID)
	m.sessions.Unbind(c)
	m.metrics.DecrementConnections()
	m.logger.Info("client disconnected", "conn_id", c.ID, "user", c.UserID, "online", m.pool.Count())
	m.events.Publish(Event{Type: EventClientDisconnected, ConnID: c.ID, User: c.UserID})
}

// Broadcast 广播推送。
// p.User 非空且该用户在线时仅投递其全部连接; 用户不在线或未指定用户时
// 投递所有连接。单个连接投递失败只断开该连接, 不影响其余接收方。
func (m *Manager) Broadcast(p *Push) {
	var targets []*Client
	if p.User != "" {
		targets = m.sessions.List(p.User)
	}
	if len(targets) == 0 {
		targets = m.pool.All()
	}
	for _, c := range targets {
		if err := c.SendJSON(p); err != nil {
			m.dropClient(c, err)
		}
	}
}

// SendPersonal 按连接句柄单播。Target 在序列化前清空, 不随消息下发。
// 目标连接不存在返回 ErrClientNotFound, 由调用方决定是否忽略。
func (m *Manager) SendPersonal(p *Push) error {
	target := p.Target
	if target == "" {
		return ErrClientNotFound
	}
	c, ok := m.pool.Get(target)
	if !ok {
		return ErrClientNotFound
	}
	p.Target = ""
	if err := c.SendJSON(p); err != nil {
		m.dropClient(c, err)
		return err
	}
	return nil
}

// dropClient 投递失败视为连接不可用, 断开并计入丢弃
func (m *Manager) dropClient(c *Client, err error) {
	m.metrics.IncrementDroppedMessages()
	m.logger.Warn("delivery failed, dropping client", "conn_id", c.ID, "user", c.UserID, "error", err)
	m.events.Publish(Event{Type: EventDeliveryFailed, ConnID: c.ID, User: c.UserID})
	c.Close()
}

// Shutdown 优雅关闭: 停止接受新连接, 排空任务队列, 关闭全部连接
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrManagerClosed
	}
	m.logger.Info("gateway shutting down", "online", m.pool.Count())

	err := m.queue.Stop(ctx)

	m.pool.Range(func(c *Client) bool {
		c.Close()
		return true
	})
	m.events.Close()
	m.cancel()
	return err
}

package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client 单个 WebSocket 连接的封装。
// 读写分离: readPump 负责收包与分发, writePump 负责发包与心跳,
// 业务侧只通过 Send 系列方法与连接交互。
type Client struct {
	// ID 连接唯一标识
	ID string

	// UserID 认证后绑定的用户标识, 未认证时为空
	UserID string

	conn    *websocket.Conn
	manager *Manager

	send     chan []byte
	sendHigh chan []byte

	metadata sync.Map

	lastPong atomic.Int64
	invalid  atomic.Int32

	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
	writeDone chan struct{}
}

func newClient(conn *websocket.Conn, m *Manager, user string) *Client {
	ctx, cancel := context.WithCancel(m.ctx)
	c := &Client{
		ID:        generateID(),
		UserID:    user,
		conn:      conn,
		manager:   m,
		send:      make(chan []byte, m.config.MessageQueueSize),
		sendHigh:  make(chan []byte, m.config.HighPriorityQueueSize),
		ctx:       ctx,
		cancel:    cancel,
		writeDone: make(chan struct{}),
	}
	c.lastPong.Store(time.Now().UnixNano())
	return c
}

// Context 连接生命周期上下文, 连接关闭时取消
func (c *Client) Context() context.Context {
	return c.ctx
}

// Set 写入连接元数据
func (c *Client) Set(key string, value any) {
	c.metadata.Store(key, value)
}

// Get 读取连接元数据
func (c *Client) Get(key string) (any, bool) {
	return c.metadata.Load(key)
}

// IsClosed 连接是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// SendBytes 非阻塞发送原始字节, 队列满时返回 ErrChannelFull
func (c *Client) SendBytes(data []byte) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrChannelFull
	}
}

// SendBytesHigh 经高优先级队列发送, 用于应答与控制消息
func (c *Client) SendBytesHigh(data []byte) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	select {
	case c.sendHigh <- data:
		return nil
	default:
		return ErrChannelFull
	}
}

// SendJSON 序列化后发送
func (c *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.SendBytes(data)
}

// SendReply 经高优先级队列发送应答
func (c *Client) SendReply(r *Reply) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.SendBytesHigh(data)
}

// Close 关闭连接并从池与会话索引中移除, 幂等
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()

		// 尽力发送关闭帧, 失败忽略
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

		// 等待写协程退出后再关闭底层连接
		select {
		case <-c.writeDone:
		case <-time.After(2 * time.Second):
		}
		_ = c.conn.Close()

		c.manager.onDisconnect(c)
	})
}

// readPump 读循环: 收包、解析信封、交给网关分发。
// 单条消息解析失败只记录并丢弃, 连接保持打开; 连续无效消息过多时断开。
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.manager.config.HeartbeatTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now().UnixNano())
		return c.conn.SetReadDeadline(time.Now().Add(c.manager.config.HeartbeatTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.manager.metrics.IncrementReadErrors()
				c.manager.logger.Warn("read failed", "conn_id", c.ID, "error", err)
			}
			return
		}

		env := acquireEnvelope()
		if err := ParseEnvelope(raw, env); err != nil {
			releaseEnvelope(env)
			c.manager.metrics.IncrementInvalidMessages()
			c.manager.logger.Warn("invalid message dropped", "conn_id", c.ID, "user", c.UserID)
			if n := c.invalid.Add(1); c.manager.config.MaxInvalidMessages > 0 &&
				int(n) >= c.manager.config.MaxInvalidMessages {
				c.manager.logger.Warn("too many invalid messages, closing", "conn_id", c.ID)
				return
			}
			continue
		}
		c.invalid.Store(0)

		c.manager.metrics.IncrementMessages(env.Name)
		c.manager.dispatch(c, env)
		releaseEnvelope(env)
	}
}

// writePump 写循环: 串行发包并维持心跳。
// 高优先级队列先行, 写失败立即退出触发连接关闭。
func (c *Client) writePump() {
	ticker := time.NewTicker(c.manager.config.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		close(c.writeDone)
		c.Close()
	}()

	writeWait := 10 * time.Second

	write := func(data []byte) bool {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.manager.metrics.IncrementWriteErrors()
			c.manager.logger.Warn("write failed", "conn_id", c.ID, "error", err)
			return false
		}
		return true
	}

	for {
		// 高优先级队列先行
		select {
		case data := <-c.sendHigh:
			if !write(data) {
				return
			}
			continue
		default:
		}

		select {
		case data := <-c.sendHigh:
			if !write(data) {
				return
			}
		case data := <-c.send:
			if !write(data) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			// 连接关闭前尽量冲刷高优先级队列, 保证已入队的应答送达
			for {
				select {
				case data := <-c.sendHigh:
					if !write(data) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

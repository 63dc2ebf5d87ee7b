package ws

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tokmz/danqing/pkg/job"
)

var tracer = otel.Tracer("danqing/ws")

// dispatch 在读循环内分发一条信封。
// logout 由网关直接处理; 未注册事件回错误应答;
// await 为 true 时同步执行, 否则进入后台队列。
func (m *Manager) dispatch(c *Client, e *Envelope) {
	if e.Name == EventLogout {
		m.handleLogout(c, e)
		return
	}

	h, ok := m.router.Resolve(c.UserID, e.Name)
	if !ok {
		m.metrics.IncrementUnknownEvents()
		m.logger.Warn("unknown event", "conn_id", c.ID, "user", c.UserID, "event", e.Name)
		if err := c.SendReply(NewErrorReply(e.ID, fmt.Errorf("unknown event: %s", e.Name))); err != nil {
			m.logger.Warn("reply dropped", "conn_id", c.ID, "error", err)
		}
		return
	}

	if e.Await {
		m.invokeInline(c, e, h)
		return
	}
	m.enqueue(c, e, h)
}

// handleLogout 先回确认, 再解绑会话并关闭连接
func (m *Manager) handleLogout(c *Client, e *Envelope) {
	_ = c.SendReply(NewReply(e.ID, "ok"))
	m.logger.Info("client logout", "conn_id", c.ID, "user", c.UserID)
	m.events.Publish(Event{Type: EventClientLogout, ConnID: c.ID, User: c.UserID})
	c.Close()
}

// invokeInline 同步执行处理器并立即回包。
// 处理器错误与 panic 都转成错误文本下发, 连接保持打开。
func (m *Manager) invokeInline(c *Client, e *Envelope, h Handler) {
	ctx, cancel := context.WithTimeout(c.ctx, m.config.DispatchTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "ws.dispatch",
		trace.WithAttributes(
			attribute.String("event", e.Name),
			attribute.String("conn_id", c.ID),
			attribute.Bool("await", true),
		))
	defer span.End()

	result, err := m.invoke(ctx, c, e, h)

	var reply *Reply
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.logger.Error("handler failed", "event", e.Name, "conn_id", c.ID, "error", err)
		reply = NewErrorReply(e.ID, err)
	} else {
		reply = NewReply(e.ID, result)
	}
	if err := c.SendReply(reply); err != nil {
		m.logger.Warn("reply dropped", "conn_id", c.ID, "error", err)
	}
}

// enqueue 将处理器包装为后台任务提交队列。
// 入队成功先回 queued 确认; 队列满时回错误应答, 不阻塞读循环。
// 任务完成后按连接 ID 重新查找连接投递结果, 连接已断开则丢弃。
func (m *Manager) enqueue(c *Client, e *Envelope, h Handler) {
	// 信封在读循环结束后会回池, 任务持有副本
	env := &Envelope{Name: e.Name, Data: e.Data, ID: e.ID}

	jb := job.Acquire()
	jb.Name = env.Name
	jb.Context[job.KeyConnID] = c.ID
	jb.Context[job.KeyRequestID] = env.ID
	jb.Context[job.KeyUser] = c.UserID
	jb.Work = func(ctx context.Context, jc map[string]any) (any, error) {
		ctx, span := tracer.Start(ctx, "ws.job",
			trace.WithAttributes(
				attribute.String("event", env.Name),
				attribute.Bool("await", false),
			))
		defer span.End()
		return m.invoke(ctx, c, env, h)
	}
	jb.OnComplete = m.completeJob

	if err := m.queue.Submit(jb); err != nil {
		job.Release(jb)
		m.logger.Warn("job rejected", "event", env.Name, "conn_id", c.ID, "error", err)
		if err := c.SendReply(NewErrorReply(env.ID, err)); err != nil {
			m.logger.Warn("reply dropped", "conn_id", c.ID, "error", err)
		}
		return
	}

	m.events.Publish(Event{Type: EventJobQueued, ConnID: c.ID, User: c.UserID, Name: env.Name})
	if err := c.SendReply(NewQueuedReply(env.ID)); err != nil {
		m.logger.Warn("reply dropped", "conn_id", c.ID, "error", err)
	}
}

// completeJob 任务完成回调, 在工作协程中执行
func (m *Manager) completeJob(jc map[string]any) {
	connID, _ := jc[job.KeyConnID].(string)
	requestID, _ := jc[job.KeyRequestID].(string)
	name, _ := jc[job.KeyName].(string)
	user, _ := jc[job.KeyUser].(string)

	m.events.Publish(Event{Type: EventJobCompleted, ConnID: connID, User: user, Name: name})

	c, ok := m.pool.Get(connID)
	if !ok {
		m.logger.Debug("job result dropped, client gone", "conn_id", connID, "event", name)
		return
	}
	if err := c.SendReply(NewReply(requestID, jc[job.KeyData])); err != nil {
		m.metrics.IncrementDroppedMessages()
		m.logger.Warn("job result dropped", "conn_id", connID, "event", name, "error", err)
	}
}

// invoke 经中间件链执行处理器, panic 转 error
func (m *Manager) invoke(ctx context.Context, c *Client, e *Envelope, h Handler) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ws: handler panic: %v", r)
		}
	}()
	return m.router.chain(h)(ctx, c, e)
}

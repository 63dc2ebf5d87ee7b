package ws

import (
	"context"
	"encoding/json"
	"sync"
)

// Handler 事件处理器。返回值作为应答 data 序列化下发;
// 返回错误时错误文本作为应答 data 下发。
type Handler func(ctx context.Context, c *Client, e *Envelope) (any, error)

// MiddlewareFunc 路由中间件, 调用 next 继续链路
type MiddlewareFunc func(ctx context.Context, c *Client, e *Envelope, next Handler) (any, error)

// Router 事件路由表。
// 同名注册后注册覆盖先注册; 用户级注册优先于全局注册。
// 所有方法并发安全, 连接存续期间可随时注册或注销。
type Router struct {
	mu         sync.RWMutex
	global     map[string]Handler
	userScoped map[string]map[string]Handler
	middleware []MiddlewareFunc
}

// NewRouter 创建路由表
func NewRouter() *Router {
	return &Router{
		global:     make(map[string]Handler),
		userScoped: make(map[string]map[string]Handler),
	}
}

// Register 注册全局处理器, 对所有连接生效
func (r *Router) Register(name string, h Handler) {
	if name == "" || h == nil {
		return
	}
	r.mu.Lock()
	r.global[name] = h
	r.mu.Unlock()
}

// RegisterUser 注册用户级处理器, 仅对该用户的连接生效,
// 且优先于同名全局处理器
func (r *Router) RegisterUser(user, name string, h Handler) {
	if user == "" || name == "" || h == nil {
		return
	}
	r.mu.Lock()
	handlers, ok := r.userScoped[user]
	if !ok {
		handlers = make(map[string]Handler)
		r.userScoped[user] = handlers
	}
	handlers[name] = h
	r.mu.Unlock()
}

// Deregister 注销全局处理器
func (r *Router) Deregister(name string) {
	r.mu.Lock()
	delete(r.global, name)
	r.mu.Unlock()
}

// DeregisterUser 注销用户级处理器, 用户最后一个处理器注销后清理用户条目
func (r *Router) DeregisterUser(user, name string) {
	r.mu.Lock()
	if handlers, ok := r.userScoped[user]; ok {
		delete(handlers, name)
		if len(handlers) == 0 {
			delete(r.userScoped, user)
		}
	}
	r.mu.Unlock()
}

// Use 追加中间件, 按注册顺序包裹处理器
func (r *Router) Use(mw ...MiddlewareFunc) {
	r.mu.Lock()
	r.middleware = append(r.middleware, mw...)
	r.mu.Unlock()
}

// Resolve 按用户级优先、全局兜底的顺序查找处理器
func (r *Router) Resolve(user, name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user != "" {
		if handlers, ok := r.userScoped[user]; ok {
			if h, ok := handlers[name]; ok {
				return h, true
			}
		}
	}
	h, ok := r.global[name]
	return h, ok
}

// Has 全局处理器是否已注册
func (r *Router) Has(name string) bool {
	r.mu.RLock()
	_, ok := r.global[name]
	r.mu.RUnlock()
	return ok
}

// Events 返回已注册的全局事件名列表
func (r *Router) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.global))
	for name := range r.global {
		names = append(names, name)
	}
	return names
}

// chain 将中间件链包裹到处理器外层
func (r *Router) chain(h Handler) Handler {
	r.mu.RLock()
	mws := r.middleware
	r.mu.RUnlock()
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		next := h
		h = func(ctx context.Context, c *Client, e *Envelope) (any, error) {
			return mw(ctx, c, e, next)
		}
	}
	return h
}

// Handle 泛型适配器, 自动解析 data 为 Req 类型
func Handle[Req any](fn func(ctx context.Context, c *Client, req Req) (any, error)) Handler {
	return func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		var req Req
		if err := json.Unmarshal(e.Data, &req); err != nil {
			return nil, ErrInvalidEnvelope
		}
		return fn(ctx, c, req)
	}
}

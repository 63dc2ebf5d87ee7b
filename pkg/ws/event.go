package ws

import (
	"sync"
	"time"
)

// 网关内部事件类型
const (
	EventClientConnected    = "client.connected"
	EventClientDisconnected = "client.disconnected"
	EventClientLogout       = "client.logout"
	EventMessageReceived    = "message.received"
	EventJobQueued          = "job.queued"
	EventJobCompleted       = "job.completed"
	EventDeliveryFailed     = "delivery.failed"
)

// Event 网关生命周期事件
type Event struct {
	Type   string
	ConnID string
	User   string
	Name   string
	Time   time.Time
}

// EventListener 事件监听函数
type EventListener func(e Event)

// EventBus 异步事件总线。监听器在独立工作协程中执行,
// 处理缓慢或出错不影响网关主流程; 总线关闭后发布为空操作。
type EventBus struct {
	mu        sync.RWMutex
	listeners map[string][]EventListener
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewEventBus 创建事件总线并启动工作协程
func NewEventBus(buffer, workers int) *EventBus {
	if buffer <= 0 {
		buffer = 256
	}
	if workers <= 0 {
		workers = 1
	}
	bus := &EventBus{
		listeners: make(map[string][]EventListener),
		events:    make(chan Event, buffer),
		done:      make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		bus.wg.Add(1)
		go bus.worker()
	}
	return bus
}

// Subscribe 订阅指定类型的事件
func (b *EventBus) Subscribe(eventType string, listener EventListener) {
	if listener == nil {
		return
	}
	b.mu.Lock()
	b.listeners[eventType] = append(b.listeners[eventType], listener)
	b.mu.Unlock()
}

// Publish 发布事件, 总线满或已关闭时丢弃
func (b *EventBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case <-b.done:
	case b.events <- e:
	default:
	}
}

// Close 关闭总线并等待在途事件处理完成
func (b *EventBus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
	})
}

func (b *EventBus) worker() {
	defer b.wg.Done()
	for {
		select {
		case e := <-b.events:
			b.deliver(e)
		case <-b.done:
			// 排空缓冲后退出
			for {
				select {
				case e := <-b.events:
					b.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (b *EventBus) deliver(e Event) {
	b.mu.RLock()
	listeners := b.listeners[e.Type]
	b.mu.RUnlock()
	for _, listener := range listeners {
		b.invoke(listener, e)
	}
}

func (b *EventBus) invoke(listener EventListener, e Event) {
	defer func() {
		_ = recover()
	}()
	listener(e)
}

package ws

import (
	"encoding/json"
	"sync"
)

// ReplyName 所有应答消息的固定事件名
const ReplyName = "Received"

// EventLogout 登出事件名, 由网关内部处理
const EventLogout = "logout"

// Envelope 入站消息信封。
// Name 与 Data 为必填字段; Await 标记是否同步等待结果;
// ID 由客户端生成, 用于将应答与请求关联。
type Envelope struct {
	Name  string          `json:"name"`
	Data  json.RawMessage `json:"data"`
	Await bool            `json:"await"`
	ID    string          `json:"id"`
}

// Reply 出站应答信封, ID 回显请求的 ID。
type Reply struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data any    `json:"data"`
}

// Push 服务端主动推送的消息。
// User 非空时仅投递给该用户的所有连接; Target 非空时仅投递给指定连接,
// Target 字段在落线前会被清空, 不参与序列化传输。
type Push struct {
	Name   string `json:"name"`
	Status any    `json:"status,omitempty"`
	Data   any    `json:"data,omitempty"`
	User   string `json:"-"`
	Target string `json:"-"`
}

// envelopePool 信封对象池, 降低读循环的分配压力
var envelopePool = sync.Pool{
	New: func() any {
		return &Envelope{}
	},
}

// acquireEnvelope 从池中获取信封
func acquireEnvelope() *Envelope {
	return envelopePool.Get().(*Envelope)
}

// releaseEnvelope 重置并归还信封
func releaseEnvelope(e *Envelope) {
	e.Name = ""
	e.Data = nil
	e.Await = false
	e.ID = ""
	envelopePool.Put(e)
}

// ParseEnvelope 解析原始消息为信封并校验必填字段
func ParseEnvelope(raw []byte, e *Envelope) error {
	if err := json.Unmarshal(raw, e); err != nil {
		return ErrInvalidEnvelope
	}
	if e.Name == "" {
		return ErrInvalidEnvelope
	}
	if len(e.Data) == 0 {
		return ErrInvalidEnvelope
	}
	return nil
}

// NewReply 构造携带结果的应答
func NewReply(id string, data any) *Reply {
	return &Reply{ID: id, Name: ReplyName, Data: data}
}

// NewErrorReply 构造携带错误描述的应答, 错误以字符串形式放入 data
func NewErrorReply(id string, err error) *Reply {
	return &Reply{ID: id, Name: ReplyName, Data: err.Error()}
}

// NewQueuedReply 构造异步任务入队确认
func NewQueuedReply(id string) *Reply {
	return &Reply{ID: id, Name: ReplyName, Data: map[string]string{"status": "queued"}}
}

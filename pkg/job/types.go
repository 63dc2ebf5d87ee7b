package job

import (
	"context"
	"time"
)

// 任务上下文约定键
const (
	// KeyData 任务结果或错误文本
	KeyData = "data"
	// KeyFailed 任务是否失败
	KeyFailed = "failed"
	// KeyName 任务名
	KeyName = "name"
	// KeyConnID 发起连接 ID
	KeyConnID = "conn_id"
	// KeyRequestID 请求关联 ID
	KeyRequestID = "request_id"
	// KeyUser 发起用户
	KeyUser = "user"
)

// WorkFunc 任务执行函数, 返回值写入上下文 data 键
type WorkFunc func(ctx context.Context, jc map[string]any) (any, error)

// CompleteFunc 任务完成回调, 无论成败都会执行
type CompleteFunc func(jc map[string]any)

// Job 一个待执行任务
type Job struct {
	// ID 任务唯一标识
	ID string

	// Name 任务名, 用于日志与指标
	Name string

	// Work 执行函数, 必填
	Work WorkFunc

	// OnComplete 完成回调, 可选
	OnComplete CompleteFunc

	// Context 贯穿任务生命周期的键值上下文
	Context map[string]any

	// EnqueuedAt 入队时间
	EnqueuedAt time.Time
}

package job

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrQueueFull 队列已满, 任务被拒绝
	ErrQueueFull = errors.New("job: queue is full")

	// ErrQueueClosed 队列已关闭
	ErrQueueClosed = errors.New("job: queue is closed")

	// ErrQueueRunning 队列已在运行
	ErrQueueRunning = errors.New("job: queue is already running")

	// ErrNilJob 任务为空
	ErrNilJob = errors.New("job: job is nil")

	// ErrNilWork 任务缺少执行函数
	ErrNilWork = errors.New("job: work func is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("job: invalid config")
)

// 错误码
const (
	CodeQueueFull   = 5001
	CodeQueueClosed = 5002
	CodePanic       = 5003
	CodeTimeout     = 5004
)

// Error 携带错误码的任务错误
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job: [%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("job: [%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 创建带错误码的任务错误
func NewError(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

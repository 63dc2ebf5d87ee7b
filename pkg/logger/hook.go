package logger

import "go.uber.org/zap/zapcore"

// Hook 日志写入钩子, 可用于把错误日志转发到告警通道
type Hook interface {
	// OnWrite 每条日志写入前调用, 返回错误会中止本条写入
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) error
}

package ws

import "errors"

// 预定义错误
var (
	// ErrManagerClosed 网关已关闭
	ErrManagerClosed = errors.New("ws: manager is closed")

	// ErrClientClosed 客户端连接已关闭
	ErrClientClosed = errors.New("ws: client is closed")

	// ErrClientNotFound 客户端不存在
	ErrClientNotFound = errors.New("ws: client not found")

	// ErrUserNotFound 用户不在线
	ErrUserNotFound = errors.New("ws: user not found")

	// ErrChannelFull 发送通道已满
	ErrChannelFull = errors.New("ws: send channel is full")

	// ErrMaxConnections 超过最大连接数
	ErrMaxConnections = errors.New("ws: max connections reached")

	// ErrInvalidEnvelope 消息信封格式无效
	ErrInvalidEnvelope = errors.New("ws: invalid envelope")

	// ErrHandlerNotFound 事件处理器未注册
	ErrHandlerNotFound = errors.New("ws: handler not found")

	// ErrAuthFailed 连接认证失败
	ErrAuthFailed = errors.New("ws: authentication failed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("ws: invalid config")

	// ErrDispatchTimeout 同步处理超时
	ErrDispatchTimeout = errors.New("ws: dispatch timeout")
)

package errors

/*
	网关通用错误码, 1000 段。
	各子系统使用独立号段: 配置 3000 段, 状态存储 4000 段, 任务队列 5000 段
*/

var (
	// ErrServer 服务器内部错误
	ErrServer = New(1000, 500, "服务器异常", nil)
	// ErrBadRequest 请求不合法
	ErrBadRequest = New(1001, 400, "请求异常", nil)
	// ErrUnauthorized 连接凭证缺失或无效
	ErrUnauthorized = New(1002, 401, "连接未授权", nil)
	// ErrForbidden 禁止访问
	ErrForbidden = New(1003, 403, "禁止访问", nil)
	// ErrNotFound 资源不存在
	ErrNotFound = New(1004, 404, "资源不存在", nil)
	// ErrTooManyRequests 触发限流
	ErrTooManyRequests = New(1005, 429, "请求过于频繁", nil)
)

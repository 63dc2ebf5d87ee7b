package logger

import "context"

// WithTraceID 将链路 ID 写入上下文, 供 *Context 系列方法自动提取
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithUser 将用户标识写入上下文, 供 *Context 系列方法自动提取
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// TraceIDFromContext 读取上下文中的链路 ID
func TraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// UserFromContext 读取上下文中的用户标识
func UserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(userKey).(string); ok {
		return user
	}
	return ""
}

package ws

import "net/http"

// Authenticator 连接认证接口。
// 在协议升级前对 HTTP 请求做校验, 返回用户标识; 校验失败返回非 nil 错误,
// 网关将以 401 拒绝升级。
type Authenticator interface {
	Authenticate(r *http.Request) (user string, err error)
}

// AuthenticatorFunc 函数式认证器
type AuthenticatorFunc func(r *http.Request) (string, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (string, error) {
	return f(r)
}

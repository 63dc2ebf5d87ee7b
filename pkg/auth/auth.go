// Package auth 提供基于 JWT 的连接凭证签发与校验。
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 预定义错误
var (
	// ErrTokenInvalid 凭证无效
	ErrTokenInvalid = errors.New("auth: token is invalid")

	// ErrTokenExpired 凭证已过期
	ErrTokenExpired = errors.New("auth: token is expired")

	// ErrTokenMissing 请求未携带凭证
	ErrTokenMissing = errors.New("auth: token is missing")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("auth: invalid config")
)

// Claims JWT 载荷, User 为业务用户标识
type Claims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// JWT 凭证签发与校验器
type JWT struct {
	secret []byte
	issuer string
	ttl    time.Duration
	method jwt.SigningMethod
}

// Option 配置选项函数
type Option func(*JWT)

// WithIssuer 设置签发方
func WithIssuer(issuer string) Option {
	return func(j *JWT) { j.issuer = issuer }
}

// WithTTL 设置凭证有效期
func WithTTL(ttl time.Duration) Option {
	return func(j *JWT) { j.ttl = ttl }
}

// WithSigningMethod 设置签名算法, 默认 HS256
func WithSigningMethod(method jwt.SigningMethod) Option {
	return func(j *JWT) { j.method = method }
}

// New 创建凭证器, secret 不能为空
func New(secret string, opts ...Option) (*JWT, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: secret is empty", ErrInvalidConfig)
	}
	j := &JWT{
		secret: []byte(secret),
		ttl:    24 * time.Hour,
		method: jwt.SigningMethodHS256,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	return j, nil
}

// Generate 为用户签发凭证
func (j *JWT) Generate(user string) (string, error) {
	now := time.Now()
	claims := Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	return jwt.NewWithClaims(j.method, claims).SignedString(j.secret)
}

// Verify 校验凭证并返回载荷
func (j *JWT) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("%w: unexpected signing method %s", ErrTokenInvalid, t.Method.Alg())
		}
		return j.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.User == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Authenticate 从 HTTP 请求中提取并校验凭证, 实现 ws.Authenticator。
// 依次尝试 Authorization Bearer 头、token 查询参数与 token cookie,
// 浏览器 WebSocket 无法自定义请求头, 查询参数是主要携带方式。
func (j *JWT) Authenticate(r *http.Request) (string, error) {
	token := extractToken(r)
	if token == "" {
		return "", ErrTokenMissing
	}
	claims, err := j.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.User, nil
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return after
		}
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

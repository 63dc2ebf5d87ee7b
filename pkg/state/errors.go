package state

import "github.com/tokmz/danqing/pkg/errors"

// 预定义错误
var (
	ErrStateConnection    = errors.New(4001, 500, "state store connection failed", nil)
	ErrStateOperation     = errors.New(4002, 500, "state store operation failed", nil)
	ErrStateInvalidConfig = errors.New(4003, 500, "state store invalid config", nil)
)

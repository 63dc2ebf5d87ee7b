package state

import "fmt"

// New 创建状态存储实例
func New(cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverRedis:
		return newRedisStore(cfg)
	case DriverMemory:
		return newMemoryStore(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported driver type", ErrStateInvalidConfig)
	}
}

// NewWithOptions 使用 Options 模式创建状态存储实例
func NewWithOptions(opts ...Option) (Store, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return New(cfg)
}

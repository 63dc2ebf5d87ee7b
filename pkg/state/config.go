package state

import (
	"fmt"
	"time"
)

// DriverType 驱动类型
type DriverType string

const (
	DriverRedis  DriverType = "redis"
	DriverMemory DriverType = "memory"
)

// RedisMode Redis 模式
type RedisMode string

const (
	RedisStandalone RedisMode = "standalone"
	RedisCluster    RedisMode = "cluster"
	RedisSentinel   RedisMode = "sentinel"
)

// Config 状态存储配置
type Config struct {
	// 驱动类型
	Driver DriverType

	// Redis 配置
	Redis *RedisConfig

	// Memory 配置
	Memory *MemoryConfig

	// 键前缀（避免冲突）
	KeyPrefix string

	// InterruptTTL 中断标记默认过期时间
	InterruptTTL time.Duration
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr         string        // 地址（单机）
	Addrs        []string      // 地址列表（集群/哨兵）
	Mode         RedisMode     // standalone, cluster, sentinel
	Username     string        // 用户名（Redis 6.0+）
	Password     string        // 密码
	DB           int           // 数据库编号
	PoolSize     int           // 连接池大小
	MinIdleConns int           // 最小空闲连接
	MaxRetries   int           // 最大重试次数
	DialTimeout  time.Duration // 连接超时
	ReadTimeout  time.Duration // 读超时
	WriteTimeout time.Duration // 写超时

	// 哨兵模式配置
	MasterName string // 主节点名称
}

// MemoryConfig 内存驱动配置
type MemoryConfig struct {
	CleanupInterval time.Duration // 过期标记清理间隔
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Driver:       DriverMemory,
		KeyPrefix:    "danqing:",
		InterruptTTL: 10 * time.Minute,
		Memory: &MemoryConfig{
			CleanupInterval: 5 * time.Minute,
		},
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		Mode:         RedisStandalone,
		DB:           0,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Option 配置选项
type Option func(*Config)

// WithRedis 使用 Redis 驱动
func WithRedis(cfg *RedisConfig) Option {
	return func(c *Config) {
		c.Driver = DriverRedis
		c.Redis = cfg
	}
}

// WithMemory 使用内存驱动
func WithMemory(cfg *MemoryConfig) Option {
	return func(c *Config) {
		c.Driver = DriverMemory
		c.Memory = cfg
	}
}

// WithKeyPrefix 设置键前缀
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithInterruptTTL 设置中断标记默认过期时间
func WithInterruptTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.InterruptTTL = ttl
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Driver != DriverRedis && c.Driver != DriverMemory {
		return fmt.Errorf("%w: invalid driver type", ErrStateInvalidConfig)
	}

	if c.Driver == DriverRedis {
		if c.Redis == nil {
			return fmt.Errorf("%w: redis config is required", ErrStateInvalidConfig)
		}
		switch c.Redis.Mode {
		case RedisStandalone, "":
			if c.Redis.Addr == "" {
				return fmt.Errorf("%w: redis addr is required for standalone mode", ErrStateInvalidConfig)
			}
		case RedisCluster:
			if len(c.Redis.Addrs) < 3 {
				return fmt.Errorf("%w: redis cluster requires at least 3 nodes", ErrStateInvalidConfig)
			}
		case RedisSentinel:
			if len(c.Redis.Addrs) == 0 {
				return fmt.Errorf("%w: redis sentinel requires at least 1 sentinel node", ErrStateInvalidConfig)
			}
			if c.Redis.MasterName == "" {
				return fmt.Errorf("%w: redis sentinel requires master name", ErrStateInvalidConfig)
			}
		default:
			return fmt.Errorf("%w: invalid redis mode", ErrStateInvalidConfig)
		}
	}

	if c.Driver == DriverMemory && c.Memory == nil {
		return fmt.Errorf("%w: memory config is required", ErrStateInvalidConfig)
	}

	return nil
}
